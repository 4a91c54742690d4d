// Package chatlog maintains the ordered conversation record for one patient.
//
// Entries are stored in a [kv.Store] under a per-(user, patient) prefix with
// nanosecond-timestamp keys, so the store's lexicographic iteration order is
// the conversation's chronological order. A reverse index maps entry IDs back
// to timestamps for in-place edits.
//
// Key layout:
//
//	chat:{user}:{patient}:e:{ts_ns}  → msgpack-encoded Entry
//	chat:{user}:{patient}:i:{id}    → timestamp string (reverse index)
package chatlog

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/ScrewVolt/halov2/pkg/kv"
)

// Sentinel errors.
var (
	// ErrEmptyText is returned when an append or edit carries no visible text.
	ErrEmptyText = errors.New("chatlog: empty text")
)

// TimestampLayout formats the prefix stamped into each entry's text at
// append time. The stored text is the canonical record; the prefix is never
// re-derived at render time.
const TimestampLayout = "2006-01-02 15:04:05"

// Entry is one unit of the conversation log.
type Entry struct {
	// ID is assigned by the log on append and never changes.
	ID string `json:"id" msgpack:"id"`

	// Text is the display string. Append-originated entries have the form
	// "[<timestamp>] <content>"; edits may replace the text freely.
	Text string `json:"text" msgpack:"text"`

	// Timestamp is the creation instant, used only for ordering.
	Timestamp time.Time `json:"timestamp" msgpack:"ts"`
}

// Log is the ordered, append/edit-only conversation record for one patient.
// It is safe for concurrent use.
type Log struct {
	store  kv.Store
	prefix kv.Key // chat:{user}:{patient}

	mu  sync.Mutex // serializes appends so same-instant keys stay unique
	now func() time.Time
}

// Option configures a Log.
type Option func(*Log)

// WithNow overrides the clock used to timestamp appended entries.
// Intended for tests.
func WithNow(now func() time.Time) Option {
	return func(l *Log) { l.now = now }
}

// New creates a Log for the given user and patient on top of store.
func New(store kv.Store, user, patient string, opts ...Option) *Log {
	l := &Log{
		store:  store,
		prefix: kv.Key{"chat", user, patient},
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Append validates, timestamps, and stores a new entry. The stored text is
// "[<UTC timestamp>] <content>". Returns the stored entry, or ErrEmptyText
// if content is empty or whitespace-only.
func (l *Log) Append(ctx context.Context, content string) (Entry, error) {
	if strings.TrimSpace(content) == "" {
		return Entry{}, ErrEmptyText
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	key := l.now().UnixNano()
	// Same-instant appends bump forward by a nanosecond until the key is
	// free. Appends with distinct timestamps keep their own positions, so
	// log order follows timestamps, not arrival order.
	for {
		_, err := l.store.Get(ctx, l.entryKey(key))
		if errors.Is(err, kv.ErrNotFound) {
			break
		}
		if err != nil {
			return Entry{}, err
		}
		key++
	}
	ts := time.Unix(0, key).UTC()

	entry := Entry{
		ID:        uuid.NewString(),
		Text:      fmt.Sprintf("[%s UTC] %s", ts.UTC().Format(TimestampLayout), content),
		Timestamp: ts,
	}
	if err := l.put(ctx, key, entry); err != nil {
		return Entry{}, err
	}
	return entry, nil
}

// AppendTagged runs the fragment through Tag and appends the result.
// This is the path transcription segments take into the log.
func (l *Log) AppendTagged(ctx context.Context, fragment string) (Entry, error) {
	return l.Append(ctx, Tag(fragment))
}

// Edit replaces an entry's entire text. The entry keeps its timestamp and
// therefore its position in the log. Returns ErrEmptyText for blank text and
// kv.ErrNotFound if no entry has the given ID.
func (l *Log) Edit(ctx context.Context, id, newText string) (Entry, error) {
	if strings.TrimSpace(newText) == "" {
		return Entry{}, ErrEmptyText
	}

	raw, err := l.store.Get(ctx, l.indexKey(id))
	if err != nil {
		return Entry{}, err
	}
	key, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil {
		return Entry{}, fmt.Errorf("chatlog: corrupt index for entry %s: %w", id, err)
	}

	entryKey := l.entryKey(key)
	data, err := l.store.Get(ctx, entryKey)
	if err != nil {
		return Entry{}, err
	}
	var entry Entry
	if err := msgpack.Unmarshal(data, &entry); err != nil {
		return Entry{}, fmt.Errorf("chatlog: decode entry %s: %w", id, err)
	}

	entry.Text = newText
	encoded, err := msgpack.Marshal(entry)
	if err != nil {
		return Entry{}, fmt.Errorf("chatlog: encode entry %s: %w", id, err)
	}
	if err := l.store.Set(ctx, entryKey, encoded); err != nil {
		return Entry{}, err
	}
	return entry, nil
}

// Entries returns all entries in ascending timestamp order.
func (l *Log) Entries(ctx context.Context) ([]Entry, error) {
	var out []Entry
	for item, err := range l.store.List(ctx, l.prefix.Child("e")) {
		if err != nil {
			return nil, err
		}
		var entry Entry
		if err := msgpack.Unmarshal(item.Value, &entry); err != nil {
			return nil, fmt.Errorf("chatlog: decode %s: %w", item.Key, err)
		}
		out = append(out, entry)
	}
	return out, nil
}

// Transcript returns all entry texts newline-joined in timestamp order.
// This is the input handed to the summarization client.
func (l *Log) Transcript(ctx context.Context) (string, error) {
	entries, err := l.Entries(ctx)
	if err != nil {
		return "", err
	}
	texts := make([]string, len(entries))
	for i, e := range entries {
		texts[i] = e.Text
	}
	return strings.Join(texts, "\n"), nil
}

// Watch returns a channel carrying the full ordered entry view: once
// immediately, then again after every change to the log. Reloading the whole
// view on each change means observers always see entries in timestamp order
// no matter what order concurrent appends land in. The channel is closed
// when ctx is cancelled.
func (l *Log) Watch(ctx context.Context) (<-chan []Entry, error) {
	notify, err := l.store.Watch(ctx, l.prefix)
	if err != nil {
		return nil, err
	}

	out := make(chan []Entry, 1)
	push := func() bool {
		entries, err := l.Entries(ctx)
		if err != nil {
			return ctx.Err() == nil
		}
		// Coalesce: replace a pending view the receiver hasn't taken yet.
		select {
		case <-out:
		default:
		}
		select {
		case out <- entries:
		case <-ctx.Done():
			return false
		}
		return true
	}

	go func() {
		defer close(out)
		if !push() {
			return
		}
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-notify:
				if !ok {
					return
				}
				if !push() {
					return
				}
			}
		}
	}()
	return out, nil
}

// put stores the entry and its reverse-index record.
func (l *Log) put(ctx context.Context, key int64, entry Entry) error {
	encoded, err := msgpack.Marshal(entry)
	if err != nil {
		return fmt.Errorf("chatlog: encode entry: %w", err)
	}
	if err := l.store.Set(ctx, l.entryKey(key), encoded); err != nil {
		return err
	}
	return l.store.Set(ctx, l.indexKey(entry.ID), []byte(strconv.FormatInt(key, 10)))
}

// entryKey builds the store key for an entry. The timestamp is zero-padded
// to a fixed width so lexicographic key order matches chronological order.
func (l *Log) entryKey(ts int64) kv.Key {
	return l.prefix.Child("e", fmt.Sprintf("%019d", ts))
}

// indexKey builds the reverse-index key mapping entry ID → timestamp.
func (l *Log) indexKey(id string) kv.Key {
	return l.prefix.Child("i", id)
}
