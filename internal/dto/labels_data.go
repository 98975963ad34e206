// LabelsData is a paginated response payload for the label list.
package dto

type LabelsData struct {
	Labels      []LabelInfo `json:"labels"`
	Length      int         `json:"length"`
	TotalPages  int         `json:"totalPages"`
	CurrentPage int         `json:"currentPage"`
	Limit       int         `json:"pageSize"`
}
