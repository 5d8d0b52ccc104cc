package documents

import "time"

type documentResponse struct {
	ID          string    `json:"id"`
	DisplayName string    `json:"displayName"`
	MediaType   string    `json:"mediaType,omitempty"`
	SizeBytes   int64     `json:"sizeBytes"`
	StorageKey  string    `json:"storageKey"`
	OwnerID     string    `json:"ownerId,omitempty"`
	IsShared    bool      `json:"isShared"`
	Category    string    `json:"category,omitempty"`
	Registered  bool      `json:"registered"`
	CreatedAt   time.Time `json:"createdAt"`
}

type listResponse struct {
	Documents []documentResponse `json:"documents"`
	Total     int                `json:"total"`
	Limit     int                `json:"limit"`
	Offset    int                `json:"offset"`
}

func toResponse(d Document) documentResponse {
	return documentResponse{
		ID:          d.ID,
		DisplayName: d.DisplayName,
		MediaType:   d.MediaType,
		SizeBytes:   d.SizeBytes,
		StorageKey:  d.StorageKey,
		OwnerID:     d.OwnerID,
		IsShared:    d.IsShared,
		Category:    d.Category,
		Registered:  d.Registered,
		CreatedAt:   d.CreatedAt,
	}
}

func toListResponse(p Page, limit, offset int) listResponse {
	out := listResponse{
		Documents: make([]documentResponse, 0, len(p.Documents)),
		Total:     p.Total,
		Limit:     limit,
		Offset:    offset,
	}
	for _, d := range p.Documents {
		out.Documents = append(out.Documents, toResponse(d))
	}
	return out
}
