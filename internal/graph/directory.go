package graph

import (
	"slices"

	"golang.org/x/text/unicode/norm"
)

// Directory is the topic-indexed subscription registry. It maps a topic key
// to the set of sensor handles currently interested in it, making event
// dispatch proportional to the subscribers of one topic rather than the
// total sensor count.
//
// Topic keys are NFC-normalized so authored keys in different Unicode
// normal forms address the same topic.
//
// Directory is exclusively owned by the engine that threads it through
// compilation and dispatch; it is not safe for concurrent use.
type Directory struct {
	subs map[string]map[Handle]struct{}
}

// NewDirectory creates an empty directory.
func NewDirectory() *Directory {
	return &Directory{subs: make(map[string]map[Handle]struct{})}
}

// NormalizeTopic returns the canonical (NFC) form of a topic key.
func NormalizeTopic(topic string) string {
	return norm.NFC.String(topic)
}

// Ensure creates the topic entry if absent and returns the normalized key.
// An entry with no subscribers is valid and simply never dispatches.
func (d *Directory) Ensure(topic string) string {
	key := NormalizeTopic(topic)
	if _, ok := d.subs[key]; !ok {
		d.subs[key] = make(map[Handle]struct{})
	}
	return key
}

// Subscribe registers a sensor handle as a subscriber of topic.
// Duplicate subscriptions are harmless.
func (d *Directory) Subscribe(topic string, h Handle) {
	key := d.Ensure(topic)
	d.subs[key][h] = struct{}{}
}

// Unsubscribe removes a sensor handle from topic's subscriber set.
// Unknown topics and absent handles are silent no-ops.
func (d *Directory) Unsubscribe(topic string, h Handle) {
	key := NormalizeTopic(topic)
	if set, ok := d.subs[key]; ok {
		delete(set, h)
	}
}

// Subscribers returns a snapshot of topic's subscriber handles in ascending
// order. Returns nil for unknown or empty topics.
//
// The snapshot is essential: dispatch may despawn graphs mid-pass, mutating
// the live sets while the caller iterates.
func (d *Directory) Subscribers(topic string) []Handle {
	set, ok := d.subs[NormalizeTopic(topic)]
	if !ok || len(set) == 0 {
		return nil
	}
	handles := make([]Handle, 0, len(set))
	for h := range set {
		handles = append(handles, h)
	}
	slices.Sort(handles)
	return handles
}

// SubscriberCount returns the number of subscribers for topic.
func (d *Directory) SubscriberCount(topic string) int {
	return len(d.subs[NormalizeTopic(topic)])
}

// Topics returns all known topic keys in ascending order, including
// entries whose subscriber sets are currently empty.
func (d *Directory) Topics() []string {
	topics := make([]string, 0, len(d.subs))
	for key := range d.subs {
		topics = append(topics, key)
	}
	slices.Sort(topics)
	return topics
}
