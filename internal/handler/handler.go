package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/a-h/templ"
	"github.com/charmbracelet/log"

	"github.com/Iamcalix/quickbooksupload/internal/export"
	"github.com/Iamcalix/quickbooksupload/internal/extractor"
	"github.com/Iamcalix/quickbooksupload/internal/service"
	"github.com/Iamcalix/quickbooksupload/internal/statement"
	"github.com/Iamcalix/quickbooksupload/internal/store"
	"github.com/Iamcalix/quickbooksupload/internal/views/pages"
)

// Importer previews and imports pasted statements
type Importer interface {
	Preview(ctx context.Context, format statement.BankFormat, text string) (service.Preview, error)
	Import(ctx context.Context, req service.ImportRequest) (service.Report, error)
}

// BatchStore manages stored batches
type BatchStore interface {
	ListBatches(ctx context.Context, filter store.BatchFilter) ([]*store.Batch, error)
	GetBatch(ctx context.Context, id string) (*store.Batch, error)
	GetBatchTransactions(ctx context.Context, id string) ([]statement.Transaction, error)
	RenameBatch(ctx context.Context, id, name string) error
	DeleteBatch(ctx context.Context, id string) error
}

// Handler holds dependencies for HTTP handlers
type Handler struct {
	imports Importer
	batches BatchStore
	export  export.Options
	logger  *log.Logger
}

// NewHandler creates a new Handler instance
func NewHandler(imports Importer, batches BatchStore, opts export.Options, logger *log.Logger) *Handler {
	return &Handler{
		imports: imports,
		batches: batches,
		export:  opts,
		logger:  logger,
	}
}

// Routes registers every page on a new mux
func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/", h.Home)
	mux.HandleFunc("/health", h.Health)
	mux.HandleFunc("/import/preview", h.ImportPreview)
	mux.HandleFunc("/import/confirm", h.ImportConfirm)
	mux.HandleFunc("/batches", h.BatchList)
	mux.HandleFunc("/batches/rename", h.RenameBatch)
	mux.HandleFunc("/batches/delete", h.DeleteBatch)
	mux.HandleFunc("/export", h.Export)
	return mux
}

// Home renders the paste form
func (h *Handler) Home(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	h.render(w, r, "Paste statement", pages.Home([]string{string(statement.FormatNMB), string(statement.FormatCRDB)}))
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte("ok"))
}

// ImportPreview parses the posted text and shows what would be imported
func (h *Handler) ImportPreview(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	format, err := statement.ParseBankFormat(r.FormValue("format"))
	if err != nil {
		h.fail(w, r, http.StatusBadRequest, err.Error())
		return
	}
	data := r.FormValue("data")
	if strings.TrimSpace(data) == "" {
		h.fail(w, r, http.StatusBadRequest, "Please paste statement lines to preview.")
		return
	}

	preview, err := h.imports.Preview(r.Context(), format, data)
	if err != nil {
		h.fail(w, r, http.StatusBadRequest, err.Error())
		return
	}

	h.render(w, r, "Preview", pages.ImportPreview(previewData(format, data, preview)))
}

// ImportConfirm stores the posted batch
func (h *Handler) ImportConfirm(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	format, err := statement.ParseBankFormat(r.FormValue("format"))
	if err != nil {
		h.fail(w, r, http.StatusBadRequest, err.Error())
		return
	}

	name := strings.TrimSpace(r.FormValue("name"))
	report, err := h.imports.Import(r.Context(), service.ImportRequest{
		Format: format,
		Text:   r.FormValue("data"),
		Name:   name,
	})
	if err != nil {
		if errors.Is(err, store.ErrEmptyName) {
			h.fail(w, r, http.StatusBadRequest, "Please enter a batch name.")
			return
		}
		h.logger.Error("import failed", "format", format, "name", name, "err", err)
		h.fail(w, r, http.StatusInternalServerError, "Import failed: "+err.Error())
		return
	}

	h.render(w, r, "Import result", pages.ImportResult(pages.ImportResultData{
		BatchID:      report.BatchID,
		Name:         name,
		Written:      report.Written,
		Skipped:      report.Skipped,
		Unsaved:      report.Unsaved,
		FailedChunks: report.FailedChunks,
		FailCount:    report.Result.FailCount,
	}))
}

// BatchList shows stored batches, optionally filtered by name
func (h *Handler) BatchList(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	batches, err := h.batches.ListBatches(r.Context(), store.BatchFilter{Name: q})
	if err != nil {
		h.logger.Error("listing batches", "err", err)
		http.Error(w, "Error loading batches", http.StatusInternalServerError)
		return
	}

	rows := make([]pages.BatchRow, len(batches))
	for i, b := range batches {
		rows[i] = pages.BatchRow{
			ID:          b.ID,
			Name:        b.Name,
			Format:      string(b.BankFormat),
			CreatedAt:   b.CreatedAt.Format("02 Jan 2006 15:04"),
			TotalLines:  b.TotalLines,
			Stored:      b.TransactionCount,
			Skipped:     b.SkippedCount,
			FailCount:   b.FailCount,
			TotalAmount: b.TotalAmount.StringFixed(2),
		}
	}

	h.render(w, r, "Batches", pages.BatchList(rows, q))
}

func (h *Handler) RenameBatch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	id := r.FormValue("id")
	if err := h.batches.RenameBatch(r.Context(), id, r.FormValue("name")); err != nil {
		h.batchError(w, r, id, err)
		return
	}
	http.Redirect(w, r, "/batches", http.StatusSeeOther)
}

func (h *Handler) DeleteBatch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	id := r.FormValue("id")
	if err := h.batches.DeleteBatch(r.Context(), id); err != nil {
		h.batchError(w, r, id, err)
		return
	}
	h.logger.Info("batch deleted", "batch", id)
	http.Redirect(w, r, "/batches", http.StatusSeeOther)
}

// Export streams either a stored batch (batch_id) or freshly parsed text
// (format + data) as CSV or XLSX.
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	txns, filename, err := h.exportRecords(r)
	if err != nil {
		if errors.Is(err, store.ErrBatchNotFound) {
			http.NotFound(w, r)
			return
		}
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	switch r.FormValue("type") {
	case "xlsx":
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.xlsx"`, filename))
		err = export.WriteXLSX(w, txns, h.export)
	case "csv", "":
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.csv"`, filename))
		err = export.WriteCSV(w, txns, h.export)
	default:
		http.Error(w, "Unsupported export type", http.StatusBadRequest)
		return
	}
	if err != nil {
		h.logger.Error("export failed", "file", filename, "err", err)
	}
}

func (h *Handler) exportRecords(r *http.Request) ([]statement.Transaction, string, error) {
	ctx := r.Context()
	if id := r.FormValue("batch_id"); id != "" {
		b, err := h.batches.GetBatch(ctx, id)
		if err != nil {
			return nil, "", err
		}
		txns, err := h.batches.GetBatchTransactions(ctx, id)
		if err != nil {
			return nil, "", err
		}
		return txns, safeFilename(b.Name), nil
	}

	format, err := statement.ParseBankFormat(r.FormValue("format"))
	if err != nil {
		return nil, "", err
	}
	preview, err := h.imports.Preview(ctx, format, r.FormValue("data"))
	if err != nil {
		return nil, "", err
	}
	return preview.Result.Successful, strings.ToLower(string(format)) + "-statement", nil
}

func (h *Handler) batchError(w http.ResponseWriter, r *http.Request, id string, err error) {
	switch {
	case errors.Is(err, store.ErrBatchNotFound):
		h.fail(w, r, http.StatusNotFound, "Batch not found.")
	case errors.Is(err, store.ErrEmptyName):
		h.fail(w, r, http.StatusBadRequest, "Batch name must not be empty.")
	default:
		h.logger.Error("batch operation failed", "batch", id, "err", err)
		h.fail(w, r, http.StatusInternalServerError, "Could not update batch.")
	}
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, title string, c templ.Component) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := pages.Layout(title, c).Render(r.Context(), w); err != nil {
		h.logger.Error("rendering page", "title", title, "err", err)
	}
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, status int, msg string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	pages.Layout("Error", pages.Message("error", msg)).Render(r.Context(), w)
}

func previewData(format statement.BankFormat, data string, p service.Preview) pages.PreviewData {
	d := pages.PreviewData{
		Format:       string(format),
		Data:         data,
		TotalLines:   p.Result.TotalLines,
		SuccessCount: p.Result.SuccessCount,
		FailCount:    p.Result.FailCount,
		Resolved:     p.Resolved,
		TotalAmount:  p.Totals.TotalAmount.StringFixed(2),
	}

	for _, tx := range p.Result.Successful {
		ids := extractor.Extract(tx.RawLine)
		previewIDs := make([]pages.PreviewIdentifier, len(ids))
		for j, id := range ids {
			previewIDs[j] = pages.PreviewIdentifier{Type: string(id.Type), Value: id.Value}
		}

		d.Transactions = append(d.Transactions, pages.PreviewTransaction{
			Date:          tx.TransactionDate,
			Reference:     tx.ReferenceID,
			AccountOrUser: tx.AccountOrUserID,
			Counterparty:  tx.CounterpartyName,
			Customer:      tx.CustomerName,
			MemberID:      tx.MemberID,
			Product:       tx.ProductLabel,
			PaymentMethod: tx.PaymentMethod,
			Amount:        tx.Amount,
			Identifiers:   previewIDs,
		})
	}

	for _, tx := range p.Result.Failed {
		d.Failed = append(d.Failed, pages.FailedLine{Line: tx.RawLine, Error: tx.ErrorMessage})
	}
	return d
}

func safeFilename(name string) string {
	name = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		case r == ' ':
			return '-'
		}
		return -1
	}, strings.TrimSpace(name))
	if name == "" {
		return "batch"
	}
	return name
}
