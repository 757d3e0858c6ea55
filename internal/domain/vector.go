package domain

// VectorKind labels the knowledge-unit type behind a vector record. Combined
// with the id prefixes in textentry.go it keeps vector ids collision-free
// across unit types within one project collection.
type VectorKind string

const (
	VectorKindDocumentChunk VectorKind = "document_chunk"
	VectorKindStaticQA      VectorKind = "static_qa"
	VectorKindInterviewQA   VectorKind = "interview_qa"
)

// VectorMetadata travels with every embedded text in the vector index and is
// returned with retrieval hits so answers can cite their sources.
type VectorMetadata struct {
	Type          VectorKind `json:"type"`
	ProjectID     string     `json:"project_id"`
	DocumentID    string     `json:"document_id,omitempty"`
	FileName      string     `json:"file_name,omitempty"`
	Question      string     `json:"question,omitempty"`
	Answer        string     `json:"answer,omitempty"`
	SourceContext string     `json:"source_context,omitempty"`
	PageNumber    int        `json:"page_number,omitempty"`
}

// CollectionName returns the vector collection owned by a project. Each
// project's collection is logically exclusive to it; no cross-project
// queries are permitted.
func CollectionName(projectID string) string {
	return "project_" + projectID
}
