package commonModels

// UploadedFile is one binary handed to the scan pipeline, either from a
// multipart upload or read back from the file store for a rescan.
type UploadedFile struct {
	Name        string `json:"name"`
	ContentType string `json:"content_type"`
	Data        []byte `json:"-"`
}

func (f UploadedFile) Size() int {
	return len(f.Data)
}

type DocType string

var PDF DocType = "PDF"
var IMAGE DocType = "IMAGE"
var DOCX DocType = "DOCX"
var TXT DocType = "TXT"
var ERR DocType = "ERROR"
