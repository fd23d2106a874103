package handlers

import (
	"net/http"

	"github.com/mlimaops/teagrade-backend/internal/ingestion/ingesterr"
)

// statusForIngestError maps a pipeline failure onto an HTTP status and a
// stable error code for the response envelope.
func statusForIngestError(err error) (int, string) {
	kind := ingesterr.KindOf(err)
	switch kind {
	case ingesterr.KindConfiguration:
		// A transient fault looking the config up is an infrastructure
		// problem, not a bad source.
		if ingesterr.IsRetryable(err) {
			return http.StatusInternalServerError, string(kind)
		}
		return http.StatusUnprocessableEntity, string(kind)
	case ingesterr.KindNoGradeMatch:
		return http.StatusUnprocessableEntity, string(kind)
	case ingesterr.KindRetrieval:
		if ingesterr.IsRetryable(err) {
			return http.StatusBadGateway, string(kind)
		}
		return http.StatusNotFound, string(kind)
	case ingesterr.KindValidation, ingesterr.KindManifest, ingesterr.KindCorruptArchive,
		ingesterr.KindMissingManifest, ingesterr.KindMissingMember, ingesterr.KindPathTraversal:
		return http.StatusBadRequest, string(kind)
	case ingesterr.KindSizeLimit:
		return http.StatusRequestEntityTooLarge, string(kind)
	case ingesterr.KindPersistence, ingesterr.KindPublish:
		return http.StatusInternalServerError, string(kind)
	default:
		return http.StatusInternalServerError, "internal"
	}
}
