package httpapi

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"github.com/nguyentantai21042004/minutes-flow/internal/analysis"
	"github.com/nguyentantai21042004/minutes-flow/internal/meeting"
	"github.com/nguyentantai21042004/minutes-flow/internal/processor"
)

// uploadFields are the accepted multipart field names, in order.
var uploadFields = []string{"file", "audio"}

type uploadResponse struct {
	ID             int64                    `json:"id"`
	Success        bool                     `json:"success"`
	Transcription  string                   `json:"transcription"`
	StructuredData *analysis.StructuredData `json:"structured_data"`
	DocURL         string                   `json:"doc_url,omitempty"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Stage   string `json:"stage,omitempty"`
	Kind    string `json:"kind,omitempty"`
	Details string `json:"details,omitempty"`
	Raw     string `json:"raw,omitempty"`
}

func (h *handler) upload(c *gin.Context) {
	// A multipart body may carry a file, so refuse it before reading when
	// uploads cannot be processed. Other bodies fall through to missing_file.
	if c.ContentType() == binding.MIMEMultipartPOSTForm {
		if err := h.processor.Ready(); err != nil {
			status, body := errorBody(err)
			c.JSON(status, body)
			return
		}
	}

	if h.opts.MaxUploadBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.opts.MaxUploadBytes)
	}
	defer func() {
		if c.Request.MultipartForm != nil {
			_ = c.Request.MultipartForm.RemoveAll()
		}
	}()

	up := processor.Upload{}
	fh, err := formFile(c)
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		c.JSON(http.StatusRequestEntityTooLarge, errorResponse{
			Error: fmt.Sprintf("file exceeds %d bytes", maxErr.Limit),
			Stage: processor.StageReceived,
		})
		return
	}
	if fh != nil {
		f, err := fh.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, errorResponse{Error: "cannot read uploaded file", Stage: processor.StageReceived})
			return
		}
		defer f.Close()
		up = processor.Upload{Filename: fh.Filename, Body: f}
	}

	outcome, err := h.processor.Process(c.Request.Context(), up)
	if err != nil {
		status, body := errorBody(err)
		c.JSON(status, body)
		return
	}

	resp := uploadResponse{
		ID:             outcome.ID,
		Success:        true,
		Transcription:  outcome.Analysis.Transcription,
		StructuredData: &outcome.Analysis.Data,
	}
	if outcome.Document != "" {
		resp.DocURL = "/api/download/" + outcome.Document
	}
	c.JSON(http.StatusOK, resp)
}

// formFile returns the first file found under the accepted field names,
// or nil when the request carries none.
func formFile(c *gin.Context) (*multipart.FileHeader, error) {
	for _, field := range uploadFields {
		fh, err := c.FormFile(field)
		if err == nil {
			return fh, nil
		}
		if errors.Is(err, http.ErrMissingFile) {
			continue
		}
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, err
		}
		return nil, nil
	}
	return nil, nil
}

// errorBody maps a Process error onto a status code and response body.
func errorBody(err error) (int, errorResponse) {
	body := errorResponse{Error: err.Error(), Stage: processor.StageOf(err)}

	var (
		uploadErr    *processor.UploadError
		processErr   *analysis.ProcessFailure
		malformedErr *analysis.MalformedOutput
		analysisErr  *analysis.AnalysisFailure
		storeErr     *meeting.StoreWriteError
	)
	switch {
	case errors.As(err, &uploadErr):
		body.Error = uploadErr.Error()
		body.Kind = string(uploadErr.Reason)
		if uploadErr.Reason == processor.ReasonMissingFile {
			return http.StatusBadRequest, body
		}
	case errors.As(err, &processErr):
		body.Error = fmt.Sprintf("Process failed with code %d", processErr.ExitCode)
		body.Kind = analysis.KindProcessFailure
		body.Details = processErr.Stderr
		if body.Details == "" && processErr.Err != nil {
			body.Details = processErr.Err.Error()
		}
	case errors.As(err, &malformedErr):
		body.Error = "Failed to parse analysis output"
		body.Kind = analysis.KindMalformedOutput
		body.Details = malformedErr.Err.Error()
		body.Raw = malformedErr.Raw
	case errors.As(err, &analysisErr):
		body.Error = analysisErr.Error()
		body.Kind = analysis.KindAnalysisFailure
	case errors.As(err, &storeErr):
		body.Error = "Analysis succeeded but the meeting record could not be saved"
		body.Details = storeErr.Err.Error()
	}

	return http.StatusInternalServerError, body
}
