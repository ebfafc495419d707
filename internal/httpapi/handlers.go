package httpapi

import (
	"encoding/json"
	stderrors "errors"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5/middleware"

	apperrors "github.com/ginjaninja78/ward-census-aggregator/internal/errors"
	"github.com/ginjaninja78/ward-census-aggregator/internal/service"
)

// uploadExtensions are the file names accepted in multipart uploads.
var uploadExtensions = []string{".xlsx", ".xls"}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "XLSX Aggregator API is running"})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleAggregate decodes the uploaded spreadsheet and returns its grouped
// distinct counts.
func (s *Server) handleAggregate(w http.ResponseWriter, r *http.Request) {
	if s.config.MaxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.config.MaxUploadBytes)
	}

	data, source, err := s.readUpload(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	if source == "" {
		source = middleware.GetReqID(r.Context())
	}

	result, err := s.pipeline.Run(r.Context(), service.Request{
		Data:    data,
		GroupBy: service.ParseGroupBy(r.Header.Get(GroupByHeader)),
		Source:  source,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// readUpload extracts the spreadsheet bytes from the request body.
//
//	application/json     {"file": "<base64>"}
//	multipart/form-data  field "file" holding the raw workbook
//	anything else        the body is base64 text
//
// It also returns the uploaded file name when there is one.
func (s *Server) readUpload(r *http.Request) ([]byte, string, error) {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		mediaType = ""
	}

	switch mediaType {
	case "application/json":
		var body struct {
			File string `json:"file"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			return nil, "", s.bodyError(err, "request body is not valid JSON")
		}
		if strings.TrimSpace(body.File) == "" {
			return nil, "", apperrors.DecodeError(`request body has no "file" field`, nil)
		}
		data, err := service.DecodeBase64(body.File)
		return data, "", err

	case "multipart/form-data":
		return s.readMultipart(r)

	default:
		raw, err := io.ReadAll(r.Body)
		if err != nil {
			return nil, "", s.bodyError(err, "failed to read request body")
		}
		data, err := service.DecodeBase64(string(raw))
		return data, "", err
	}
}

func (s *Server) readMultipart(r *http.Request) ([]byte, string, error) {
	maxMemory := s.config.MaxUploadBytes
	if maxMemory <= 0 {
		maxMemory = 32 << 20
	}
	if err := r.ParseMultipartForm(maxMemory); err != nil {
		return nil, "", s.bodyError(err, "invalid multipart upload")
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, "", apperrors.DecodeError(`multipart upload has no "file" field`, err)
	}
	defer file.Close()

	if !hasUploadExtension(header.Filename) {
		return nil, "", apperrors.DecodeError("invalid file type: expected .xlsx or .xls", nil)
	}

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, "", s.bodyError(err, "failed to read uploaded file")
	}
	return data, header.Filename, nil
}

// bodyError reports an oversize body as PAYLOAD_TOO_LARGE and anything else
// as DECODE_ERROR.
func (s *Server) bodyError(err error, message string) error {
	var maxErr *http.MaxBytesError
	if stderrors.As(err, &maxErr) {
		return apperrors.TooLarge(maxErr.Limit)
	}
	return apperrors.DecodeError(message, err)
}

func hasUploadExtension(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, want := range uploadExtensions {
		if ext == want {
			return true
		}
	}
	return false
}

func asAppError(err error) *apperrors.AppError {
	var appErr *apperrors.AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}
	return nil
}
