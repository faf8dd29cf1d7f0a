package capture

type ocrRequest struct {
	Image string `json:"image"`
}

type ocrResponse struct {
	Success      bool     `json:"success"`
	Text         string   `json:"text"`
	Keywords     []string `json:"keywords"`
	DocumentType string   `json:"documentType"`
	Confidence   float64  `json:"confidence"`
}

type folderSuggestion struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Suggestion string `json:"suggestion"`
	Score      int    `json:"score"`
}

type foldersResponse struct {
	Success bool               `json:"success"`
	Folders []folderSuggestion `json:"folders"`
}

type uploadResponse struct {
	Success     bool   `json:"success"`
	FileID      string `json:"fileId"`
	FileName    string `json:"fileName"`
	WebViewLink string `json:"webViewLink"`
	FolderName  string `json:"folderName"`
	Message     string `json:"message"`
}

func toOCRResponse(a Analysis) ocrResponse {
	keywords := a.Keywords
	if keywords == nil {
		keywords = []string{}
	}
	return ocrResponse{
		Success:      true,
		Text:         a.Text,
		Keywords:     keywords,
		DocumentType: string(a.DocumentType),
		Confidence:   a.Confidence,
	}
}

func toFoldersResponse(candidates []FolderCandidate) foldersResponse {
	out := make([]folderSuggestion, 0, len(candidates))
	for _, c := range candidates {
		out = append(out, folderSuggestion{ID: c.ID, Name: c.Name, Suggestion: c.Reason, Score: c.Score})
	}
	return foldersResponse{Success: true, Folders: out}
}
