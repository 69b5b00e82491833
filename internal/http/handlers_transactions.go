package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"budgeteer/internal/core"
	"budgeteer/internal/importer"
	applog "budgeteer/internal/log"
	"budgeteer/internal/services"
)

type (
	batchRequest struct {
		Transactions *[]core.TransactionInput `json:"transactions"`
	}

	batchResponse struct {
		Created int    `json:"created"`
		Message string `json:"message"`
	}

	importResponse struct {
		services.ImportResult
		Message string `json:"message"`
	}

	messageResponse struct {
		Message string `json:"message"`
	}
)

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	owner, err := ownerID(r)
	if err != nil {
		writeError(ctx, w, err, applog.OpList)
		return
	}
	month, err := ParseListMonth(r.URL.Query())
	if err != nil {
		writeError(ctx, w, err, applog.OpList)
		return
	}
	txs, err := s.ledger.List(ctx, owner, month)
	if err != nil {
		writeError(ctx, w, err, applog.OpList)
		return
	}
	writeJSON(ctx, w, http.StatusOK, txs)
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	owner, err := ownerID(r)
	if err != nil {
		writeError(ctx, w, err, applog.OpCreate)
		return
	}
	var in core.TransactionInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(ctx, w, err, applog.OpCreate)
		return
	}
	tx, err := s.ledger.Create(ctx, owner, in)
	if err != nil {
		writeError(ctx, w, err, applog.OpCreate)
		return
	}
	writeJSON(ctx, w, http.StatusCreated, tx)
}

func (s *Server) handleCreateBatch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	owner, err := ownerID(r)
	if err != nil {
		writeError(ctx, w, err, applog.OpCreate)
		return
	}
	var req batchRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(ctx, w, err, applog.OpCreate)
		return
	}
	if req.Transactions == nil {
		writeError(ctx, w, &core.ParseError{Err: errors.New("transactions must be an array")}, applog.OpCreate)
		return
	}
	n, err := s.ledger.CreateBatch(ctx, owner, *req.Transactions)
	if err != nil {
		writeError(ctx, w, err, applog.OpCreate)
		return
	}
	writeJSON(ctx, w, http.StatusCreated, batchResponse{
		Created: n,
		Message: fmt.Sprintf("Successfully created %d transactions", n),
	})
}

// handleUpload imports a CSV, OFX or QFX file sent as the multipart field
// "file". With preview=true the normalized records are returned and nothing
// is stored.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	owner, err := ownerID(r)
	if err != nil {
		writeError(ctx, w, err, applog.OpImport)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	if err := r.ParseMultipartForm(s.maxUploadBytes); err != nil {
		var maxErr *http.MaxBytesError
		if !errors.As(err, &maxErr) {
			err = &core.ParseError{Err: fmt.Errorf("read multipart form: %w", err)}
		}
		writeError(ctx, w, err, applog.OpImport)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(ctx, w, &core.ParseError{Err: errors.New("no file provided")}, applog.OpImport)
		return
	}
	defer file.Close()

	rows, err := importer.ReadFile(file, header.Filename)
	if err != nil {
		writeError(ctx, w, err, applog.OpImport)
		return
	}

	preview, _ := strconv.ParseBool(r.URL.Query().Get("preview"))
	if preview {
		batch, err := s.ledger.PreviewImport(ctx, rows)
		if err != nil {
			writeError(ctx, w, err, applog.OpImport)
			return
		}
		writeJSON(ctx, w, http.StatusOK, batch)
		return
	}

	res, err := s.ledger.Import(ctx, owner, rows)
	if err != nil {
		writeError(ctx, w, err, applog.OpImport)
		return
	}
	applog.FromContext(ctx).WithComponent(applog.ComponentHTTP).InfoContext(ctx, "File imported",
		applog.FieldFile, header.Filename,
		applog.FieldCount, res.Created,
		applog.FieldCategorized, res.AutoCategorized)
	writeJSON(ctx, w, http.StatusCreated, importResponse{
		ImportResult: res,
		Message:      fmt.Sprintf("Successfully imported %d transactions", res.Created),
	})
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	owner, err := ownerID(r)
	if err != nil {
		writeError(ctx, w, err, applog.OpUpdate)
		return
	}
	var fields map[string]json.RawMessage
	if err := decodeJSON(w, r, &fields); err != nil {
		writeError(ctx, w, err, applog.OpUpdate)
		return
	}
	patch, err := ParseTransactionPatch(fields)
	if err != nil {
		writeError(ctx, w, err, applog.OpUpdate)
		return
	}
	tx, err := s.ledger.Update(ctx, owner, r.PathValue("id"), patch)
	if err != nil {
		writeError(ctx, w, err, applog.OpUpdate)
		return
	}
	writeJSON(ctx, w, http.StatusOK, tx)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	owner, err := ownerID(r)
	if err != nil {
		writeError(ctx, w, err, applog.OpDelete)
		return
	}
	if err := s.ledger.Delete(ctx, owner, r.PathValue("id")); err != nil {
		writeError(ctx, w, err, applog.OpDelete)
		return
	}
	writeJSON(ctx, w, http.StatusOK, messageResponse{Message: "Transaction deleted"})
}

func (s *Server) handleDeleteAllTransactions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	owner, err := ownerID(r)
	if err != nil {
		writeError(ctx, w, err, applog.OpDelete)
		return
	}
	n, err := s.ledger.DeleteAll(ctx, owner)
	if err != nil {
		writeError(ctx, w, err, applog.OpDelete)
		return
	}
	writeJSON(ctx, w, http.StatusOK, map[string]int{"deleted": n})
}
