package session

type StepStatus string

const (
	Pending   StepStatus = "pending"
	Current   StepStatus = "current"
	Completed StepStatus = "completed"

	FailedDescription = "Failed"
)

type Step struct {
	Label       string     `json:"label"`
	Description string     `json:"description"`
	Status      StepStatus `json:"status"`
}

const (
	stepLoaded = iota
	stepDetection
	stepOCR
	stepExtraction
	stepCount
)

func idleSteps() [stepCount]Step {
	return [stepCount]Step{
		loadedStep(KindNone, Pending),
		detectionStep(Pending),
		ocrStep(Pending),
		extractionStep(Pending),
	}
}

func loadedStep(kind Kind, status StepStatus) Step {
	label := "Uploaded"
	if kind == KindRescan || kind == KindEdit {
		label = "Loaded"
	}
	step := Step{Label: label, Status: status, Description: "Waiting for a document"}
	if status == Completed {
		switch kind {
		case KindRescan:
			step.Description = "Stored document loaded"
		case KindEdit:
			step.Description = "Saved document opened"
		default:
			step.Description = "File accepted"
		}
	}
	return step
}

func detectionStep(status StepStatus) Step {
	return Step{Label: "AI Detection", Status: status, Description: describe(status,
		"Detect the document type", "Detecting document type", "Document type detected")}
}

func ocrStep(status StepStatus) Step {
	return Step{Label: "OCR Processing", Status: status, Description: describe(status,
		"Read the document text", "Reading text", "Text recognized")}
}

func extractionStep(status StepStatus) Step {
	return Step{Label: "Data Extraction", Status: status, Description: describe(status,
		"Extract the fields", "Extracting fields", "Fields extracted")}
}

func describe(status StepStatus, pending string, current string, completed string) string {
	switch status {
	case Current:
		return current
	case Completed:
		return completed
	default:
		return pending
	}
}
