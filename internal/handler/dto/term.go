package dto

import "github.com/phoebe/phoebe/internal/model"

// TermRequest is the body of term create and update requests.
type TermRequest struct {
	Name       string `json:"name" validate:"required,max=255"`
	Vocabulary string `json:"vocabulary" validate:"required,max=100"`
}

// TermResponse describes a taxonomy term.
type TermResponse struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Vocabulary string `json:"vocabulary"`
}

// ToTermResponse converts a term.
func ToTermResponse(t *model.Term) TermResponse {
	return TermResponse{ID: t.ID, Name: t.Name, Vocabulary: t.Vocabulary}
}

// ToTermResponses converts a list of terms.
func ToTermResponses(terms []*model.Term) []TermResponse {
	out := make([]TermResponse, 0, len(terms))
	for _, t := range terms {
		if t != nil {
			out = append(out, ToTermResponse(t))
		}
	}
	return out
}
