package extractor

import (
	"testing"
)

func TestExtractMemberCode(t *testing.T) {
	tests := []struct {
		name string
		line string
		want []string
	}{
		{
			name: "standalone member code",
			line: "Cash deposit MC012ABC => JOHN DOE",
			want: []string{"MC012ABC"},
		},
		{
			name: "lower case is normalized",
			line: "Description 963330000141 mc045xyz",
			want: []string{"MC045XYZ"},
		},
		{
			name: "embedded in description token",
			line: "Description 963330000141MC777KLM!! From SAVCOM",
			want: []string{"MC777KLM"},
		},
		{
			name: "duplicates collapse",
			line: "MC100AAA paid for mc100aaa",
			want: []string{"MC100AAA"},
		},
		{
			name: "too few digits",
			line: "MC12ABC deposit",
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractByType(tt.line, TypeMemberCode)
			if len(got) != len(tt.want) {
				t.Errorf("ExtractByType() got %d values, want %d (%v)", len(got), len(tt.want), got)
				return
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("ExtractByType()[%d] = %v, want %v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestExtractNMBLine(t *testing.T) {
	line := "101 - NMB Head Office - Cash Deposit agency @22410063786@TPS900 Description 963330000141!! => VITUS VICENT ITABA"

	ids := Extract(line)

	want := []Identifier{
		{Type: TypeUserID, Value: "22410063786"},
		{Type: TypeReference, Value: "963330000141"},
	}
	if len(ids) != len(want) {
		t.Fatalf("Expected %d identifiers, got %d (%v)", len(want), len(ids), ids)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Errorf("Expected %v, got %v", want[i], ids[i])
		}
	}
}

func TestExtractCRDBLine(t *testing.T) {
	line := "20.01.2026 13:59:00  REF:19bdb0f42ad57818 AGENCY FT TO FRANKAB17689067684357947257:HASSAN SAIDI NGUNDE:963330000396 N/A  0.00  12,500.00"

	refs := ExtractByType(line, TypeReference)
	if len(refs) != 1 || refs[0] != "19bdb0f42ad57818" {
		t.Errorf("Expected reference 19bdb0f42ad57818, got %v", refs)
	}

	accounts := ExtractByType(line, TypeAccountNumber)
	if len(accounts) != 1 || accounts[0] != "963330000396" {
		t.Errorf("Expected account 963330000396, got %v", accounts)
	}
}

func TestExtractAccountMarker(t *testing.T) {
	got := ExtractByType("Deposit to A/C NO. 0150123456789 by agent", TypeAccountNumber)
	if len(got) != 1 || got[0] != "0150123456789" {
		t.Errorf("Expected [0150123456789], got %v", got)
	}
}

func TestExtractValues(t *testing.T) {
	values := ExtractValues("MC001ABC @123@")
	if len(values) != 2 {
		t.Fatalf("Expected 2 values, got %d", len(values))
	}
	if values[0] != "MC001ABC" || values[1] != "123" {
		t.Errorf("Unexpected values %v", values)
	}
}

func TestMemberCode(t *testing.T) {
	code, ok := MemberCode("ref mc321qwe and MC999ZZZ")
	if !ok {
		t.Fatal("Expected a member code")
	}
	if code != "MC321QWE" {
		t.Errorf("Expected first code MC321QWE, got %s", code)
	}

	if _, ok := MemberCode("no code here"); ok {
		t.Error("Expected no member code")
	}
}
