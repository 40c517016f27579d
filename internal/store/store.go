// Package store persists a finished analysis run as the share-store
// record shape the notification bot's mention-reply flow expects:
// {mentionCounts, uncategorizedPosts, excludedCategories,
// manualAssignments, originalPost, postCount, timestamp}. The core is
// agnostic to how this is ultimately rendered or replied to; it only
// needs to hand the bot a durable, re-renderable snapshot.
package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/threadtally/threadtally/internal/types"
)

// StoredPost is a minimal reprojection of a Post sufficient to
// re-render it in a reply or share card, mirroring the teacher's
// field-map flattening in internal/storage/file.go.
type StoredPost struct {
	URI         string    `json:"uri" bson:"uri"`
	AuthorDID   string    `json:"authorDid" bson:"authorDid"`
	AuthorHandle string   `json:"authorHandle" bson:"authorHandle"`
	Text        string    `json:"text" bson:"text"`
	CreatedAt   time.Time `json:"createdAt" bson:"createdAt"`
}

// ToStoredPost reprojects a full Post down to its share-store shape.
func ToStoredPost(p *types.Post) StoredPost {
	return StoredPost{
		URI:          p.URI,
		AuthorDID:    p.Author.DID,
		AuthorHandle: p.Author.Handle,
		Text:         p.Text,
		CreatedAt:    p.CreatedAt,
	}
}

// MentionCount is one canonical title's tally, reprojected for storage:
// the matched title text plus every contributing post.
type MentionCount struct {
	Mention string       `json:"mention" bson:"mention"`
	Count   int          `json:"count" bson:"count"`
	Posts   []StoredPost `json:"posts" bson:"posts"`
}

// Record is one persisted analysis run, the spec's share-store record
// shape verbatim. ExcludedCategories and ManualAssignments are populated
// by the external bot after the fact (a human moderator dismissing a
// cluster suggestion, or manually assigning an uncategorized post to a
// title); the core always writes them empty on first save.
type Record struct {
	ID                 string            `json:"id" bson:"_id"`
	MentionCounts      []MentionCount    `json:"mentionCounts" bson:"mentionCounts"`
	UncategorizedPosts []StoredPost      `json:"uncategorizedPosts" bson:"uncategorizedPosts"`
	ExcludedCategories []string          `json:"excludedCategories" bson:"excludedCategories"`
	ManualAssignments  map[string]string `json:"manualAssignments" bson:"manualAssignments"`
	OriginalPost       StoredPost        `json:"originalPost" bson:"originalPost"`
	PostCount          int               `json:"postCount" bson:"postCount"`
	Timestamp          time.Time         `json:"timestamp" bson:"timestamp"`
}

// NewRecord builds a Record from one pipeline run's result, ready to
// hand to a Store.
func NewRecord(id string, result *types.AnalysisResult, now time.Time) Record {
	mentionCounts := make([]MentionCount, 0, len(result.Tally))
	for _, entry := range result.Tally {
		posts := make([]StoredPost, 0, len(entry.ContributingPosts))
		for _, p := range entry.ContributingPosts {
			posts = append(posts, ToStoredPost(p))
		}
		mentionCounts = append(mentionCounts, MentionCount{
			Mention: entry.Title,
			Count:   entry.Count,
			Posts:   posts,
		})
	}

	uncategorized := make([]StoredPost, 0, len(result.Uncategorized))
	for _, p := range result.Uncategorized {
		uncategorized = append(uncategorized, ToStoredPost(p))
	}

	var original StoredPost
	if result.RootPost != nil {
		original = ToStoredPost(result.RootPost)
	}

	return Record{
		ID:                 id,
		MentionCounts:      mentionCounts,
		UncategorizedPosts: uncategorized,
		ExcludedCategories: []string{},
		ManualAssignments:  map[string]string{},
		OriginalPost:       original,
		PostCount:          result.PostCount,
		Timestamp:          now,
	}
}

// Store is the interface the notification bot's collaborator saves
// finished analysis runs through.
type Store interface {
	// Save persists record and returns its assigned id (or record.ID
	// verbatim, for backends that don't mint their own).
	Save(ctx context.Context, record Record) (string, error)

	// Close flushes pending writes and releases resources.
	Close() error
}

// SaveResult mints a new record id, builds a Record from result, and
// saves it through s, returning the id the backend reports.
func SaveResult(ctx context.Context, s Store, result *types.AnalysisResult, now time.Time) (string, error) {
	id := uuid.NewString()
	return s.Save(ctx, NewRecord(id, result, now))
}
