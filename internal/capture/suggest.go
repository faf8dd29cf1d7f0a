package capture

import (
	"sort"
	"strings"

	"dashboard-backend/internal/cloudstore"
)

// MaxSuggestions caps RankFolders output.
const MaxSuggestions = 5

const (
	typeMatchScore    = 50
	keywordMatchScore = 10
	genericScore      = 5
)

// ScoreFolder rates how well a folder name fits a document type and a
// comma-separated keyword list.
func ScoreFolder(name, docType, keywords string) FolderCandidate {
	lower := strings.ToLower(name)
	score := 0
	reason := ""

	if t := strings.ToLower(strings.TrimSpace(docType)); t != "" && strings.Contains(lower, t) {
		score += typeMatchScore
		reason = "Matches " + docType + " type"
	}

	matches := 0
	for _, kw := range strings.Split(keywords, ",") {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw != "" && strings.Contains(lower, kw) {
			matches++
		}
	}
	if matches > 0 {
		score += matches * keywordMatchScore
		if reason != "" {
			reason += ", contains keywords"
		} else {
			reason = "Contains keywords"
		}
	}

	if reason == "" && (strings.Contains(lower, "scan") || strings.Contains(lower, "document")) {
		score += genericScore
		reason = "General document folder"
	}

	if reason == "" {
		reason = "General folder"
	}
	return FolderCandidate{Name: name, Score: score, Reason: reason}
}

// RankFolders scores every folder and returns the best MaxSuggestions,
// highest first. Equal scores keep listing order.
func RankFolders(folders []cloudstore.Folder, docType, keywords string) []FolderCandidate {
	out := make([]FolderCandidate, 0, len(folders))
	for _, f := range folders {
		c := ScoreFolder(f.Name, docType, keywords)
		c.ID = f.ID
		out = append(out, c)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})
	if len(out) > MaxSuggestions {
		out = out[:MaxSuggestions]
	}
	return out
}
