package recordings

import "lectern/internal/domain"

// Group is one subject's recordings in input order.
type Group struct {
	Subject    string             `json:"subject"`
	Recordings []domain.Recording `json:"recordings"`
}

// GroupBySubject buckets recordings by subject, preserving input order within
// each bucket. Recordings without a subject group under "".
func GroupBySubject(recordings []domain.Recording) map[string][]domain.Recording {
	out := make(map[string][]domain.Recording)
	for _, recording := range recordings {
		out[recording.Subject] = append(out[recording.Subject], recording)
	}
	return out
}

// Groups is GroupBySubject with groups ordered by first appearance.
func Groups(recordings []domain.Recording) []Group {
	index := make(map[string]int)
	var out []Group
	for _, recording := range recordings {
		i, ok := index[recording.Subject]
		if !ok {
			i = len(out)
			index[recording.Subject] = i
			out = append(out, Group{Subject: recording.Subject})
		}
		out[i].Recordings = append(out[i].Recordings, recording)
	}
	return out
}
