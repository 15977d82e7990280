package pages

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/a-h/templ"
)

func renderString(t *testing.T, c templ.Component) string {
	t.Helper()
	var buf bytes.Buffer
	if err := c.Render(context.Background(), &buf); err != nil {
		t.Fatalf("Render: %v", err)
	}
	return buf.String()
}

func TestLayoutWrapsBody(t *testing.T) {
	got := renderString(t, Layout("Batches <1>", Message("error", "batch not found")))

	for _, want := range []string{
		"<!doctype html>",
		"<title>Batches &lt;1&gt; | Statement Upload</title>",
		`<main><div class="error">batch not found</div></main>`,
	} {
		if !strings.Contains(got, want) {
			t.Errorf("Expected %q in:\n%s", want, got)
		}
	}
}

func TestHomeListsFormats(t *testing.T) {
	got := renderString(t, Home([]string{"NMB", "CRDB"}))
	if !strings.Contains(got, `<option value="NMB">NMB</option><option value="CRDB">CRDB</option>`) {
		t.Errorf("Expected both format options, got:\n%s", got)
	}
}

func TestImportPreviewEscapesInput(t *testing.T) {
	d := PreviewData{
		Format:       "NMB",
		Data:         `line with "quotes" & <tags>`,
		TotalLines:   2,
		SuccessCount: 1,
		FailCount:    1,
		TotalAmount:  "12500.00",
		Transactions: []PreviewTransaction{{
			Reference:    "963330000141",
			Counterparty: "JOHN <DOE>",
			Amount:       "12,500.00",
			Identifiers:  []PreviewIdentifier{{Type: "member_code", Value: "MC012ABC"}},
		}},
		Failed: []FailedLine{{Line: "garbage", Error: "no fields found"}},
	}
	got := renderString(t, ImportPreview(d))

	if strings.Contains(got, "<DOE>") || strings.Contains(got, "<tags>") {
		t.Error("Expected user text to be escaped")
	}
	for _, want := range []string{
		"2 lines: 1 parsed, 1 failed, 0 matched to customers.",
		"<strong>12500.00</strong>",
		"JOHN &lt;DOE&gt;",
		`<span data-type="member_code">MC012ABC</span>`,
		"<li><code>garbage</code> no fields found</li>",
		`<input type="hidden" name="data" value="line with &#34;quotes&#34; &amp; &lt;tags&gt;">`,
		`action="/import/confirm"`,
	} {
		if !strings.Contains(got, want) {
			t.Errorf("Expected %q in:\n%s", want, got)
		}
	}
}

func TestImportPreviewNothingToImport(t *testing.T) {
	got := renderString(t, ImportPreview(PreviewData{Format: "CRDB", TotalLines: 1, FailCount: 1}))

	if !strings.Contains(got, "Nothing to import.") {
		t.Error("Expected empty preview notice")
	}
	if strings.Contains(got, "/import/confirm") {
		t.Error("Expected no confirm form without parsed records")
	}
}

func TestImportResult(t *testing.T) {
	got := renderString(t, ImportResult(ImportResultData{
		BatchID: "b-1", Name: "January", Written: 3, Skipped: 2, FailCount: 1, Unsaved: 4, FailedChunks: 1,
	}))

	for _, want := range []string{
		"Saved: 3",
		"Already imported (skipped): 2",
		"Failed lines: 1",
		"Not saved: 4 records in 1 chunks",
		`<input type="hidden" name="batch_id" value="b-1">`,
	} {
		if !strings.Contains(got, want) {
			t.Errorf("Expected %q in:\n%s", want, got)
		}
	}
}

func TestBatchList(t *testing.T) {
	got := renderString(t, BatchList(nil, "jan"))
	if !strings.Contains(got, "No batches found.") || !strings.Contains(got, `value="jan"`) {
		t.Errorf("Expected empty list with filter, got:\n%s", got)
	}

	got = renderString(t, BatchList([]BatchRow{{ID: "b-1", Name: "January deposits", Format: "NMB", Stored: 5, TotalAmount: "100.00"}}, ""))
	for _, want := range []string{
		"<td>January deposits</td>",
		"<td>5</td>",
		`action="/batches/rename"`,
		`action="/batches/delete"`,
		`<input type="hidden" name="id" value="b-1">`,
	} {
		if !strings.Contains(got, want) {
			t.Errorf("Expected %q in:\n%s", want, got)
		}
	}
}
