package constant

const (
	// Answer returned when retrieval yields no grounding chunks.
	NotFoundAnswer = "The document does not contain information relevant to this question."

	NoUsableContentMessage = "No usable content found in document"

	TablePrefix           = "Table: "
	ImageContextPrefix    = "Image context: "
	DocumentOverviewLabel = "Document overview of %s: "

	CitationsHeader = "Sources:"
)

// SummaryTriggers route a query to the document overview chunk.
var SummaryTriggers = []string{
	"summarize",
	"summarise",
	"summary",
	"overview",
	"tell me about",
	"what is this document",
	"what is this pdf",
	"what is this about",
	"what do you know",
	"describe this document",
}

// VisualLabels is the closed label set offered to the visual describer.
var VisualLabels = []string{
	"diagram",
	"anatomy illustration",
	"medical image",
	"graph",
	"chart",
	"table screenshot",
	"microscope image",
	"flowchart",
	"neural structure",
	"spinal cord",
}
