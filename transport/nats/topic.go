package nats

import (
	"github.com/nats-io/nats.go/micro"

	"github.com/flarexio/docqa"
)

const (
	SubjectUpload         = "upload"
	SubjectUploadStatus   = "upload_status"
	SubjectAsk            = "ask"
	SubjectDeleteDocument = "delete_document"
	SubjectListDocuments  = "list_documents"
)

func AddEndpoints(group micro.Group, endpoints docqa.EndpointSet) {
	group.AddEndpoint(SubjectUpload, UploadHandler(endpoints.Upload))
	group.AddEndpoint(SubjectUploadStatus, UploadStatusHandler(endpoints.UploadStatus))
	group.AddEndpoint(SubjectAsk, AskHandler(endpoints.Ask))
	group.AddEndpoint(SubjectDeleteDocument, DeleteDocumentHandler(endpoints.DeleteDocument))
	group.AddEndpoint(SubjectListDocuments, ListDocumentsHandler(endpoints.ListDocuments))
}
