package gfa

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"gfa_index/pkg/graph"
)

func TestParseSegment(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		want    Segment
		wantOK  bool
		wantErr error
	}{
		{name: "plain", line: "S\t7\tACGT", want: Segment{ID: 7, Len: 4}, wantOK: true},
		{name: "optional fields", line: "S\t1\tAC\tRC:i:3", want: Segment{ID: 1, Len: 2}, wantOK: true},
		{name: "star with LN", line: "S\t2\t*\tLN:i:120", want: Segment{ID: 2, Len: 120}, wantOK: true},
		{name: "star without LN", line: "S\t2\t*", want: Segment{ID: 2, Len: 0}, wantOK: true},
		{name: "missing sequence", line: "S\t3", wantOK: false},
		{name: "non-numeric id", line: "S\tseg1\tACGT", wantErr: ErrInvalidSegmentID},
		{name: "negative id", line: "S\t-1\tACGT", wantErr: ErrInvalidSegmentID},
		{name: "bad LN", line: "S\t2\t*\tLN:i:x", wantErr: ErrInvalidLength},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok, err := ParseSegment([]byte(tt.line))
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && got != tt.want {
				t.Errorf("ParseSegment = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestParsePath(t *testing.T) {
	p, ok, err := ParsePath([]byte("P\tsample#1\t3+,4-,3+\t*"))
	if err != nil || !ok {
		t.Fatalf("ParsePath: ok=%v err=%v", ok, err)
	}
	if p.Name != "sample#1" {
		t.Errorf("Name = %q, want %q", p.Name, "sample#1")
	}
	want := []Step{{3, false}, {4, true}, {3, false}}
	if len(p.Steps) != len(want) {
		t.Fatalf("len(Steps) = %d, want %d", len(p.Steps), len(want))
	}
	for i := range want {
		if p.Steps[i] != want[i] {
			t.Errorf("Steps[%d] = %+v, want %+v", i, p.Steps[i], want[i])
		}
	}

	if _, ok, err := ParsePath([]byte("P\tonly-name")); ok || err != nil {
		t.Errorf("truncated P-line: ok=%v err=%v, want skip", ok, err)
	}
	if _, _, err := ParsePath([]byte("P\tx\t1+,2x")); !errors.Is(err, ErrInvalidOrientation) {
		t.Errorf("bad orientation err = %v, want ErrInvalidOrientation", err)
	}
	if _, _, err := ParsePath([]byte("P\tbad\xff\t1+")); !errors.Is(err, ErrInvalidPathName) {
		t.Errorf("invalid UTF-8 err = %v, want ErrInvalidPathName", err)
	}
	empty, ok, err := ParsePath([]byte("P\tempty\t"))
	if err != nil || !ok || len(empty.Steps) != 0 {
		t.Errorf("empty step list: %+v ok=%v err=%v", empty, ok, err)
	}
}

func TestParseStep(t *testing.T) {
	tests := []struct {
		tok     string
		want    Step
		wantErr error
	}{
		{tok: "10+", want: Step{ID: 10}},
		{tok: "10-", want: Step{ID: 10, Reverse: true}},
		{tok: "10", wantErr: ErrInvalidOrientation},
		{tok: "1x", wantErr: ErrInvalidOrientation},
		{tok: "+", wantErr: ErrInvalidSegmentID},
		{tok: "a+", wantErr: ErrInvalidSegmentID},
	}
	for _, tt := range tests {
		t.Run(tt.tok, func(t *testing.T) {
			got, err := ParseStep([]byte(tt.tok))
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("ParseStep(%q) = %+v, want %+v", tt.tok, got, tt.want)
			}
		})
	}
}

func TestRecordsFiltersKind(t *testing.T) {
	in := "H\tVN:Z:1.0\nS\t1\tA\nL\t1\t+\t2\t+\t0M\nS\t2\tCC\r\nP\tp\t1+,2+\t*\n"
	var got []string
	err := Records(context.Background(), strings.NewReader(in), 'S', func(line []byte) error {
		got = append(got, string(line))
		return nil
	})
	if err != nil {
		t.Fatalf("Records: %v", err)
	}
	want := []string{"S\t1\tA", "S\t2\tCC"}
	if len(got) != len(want) {
		t.Fatalf("got %d records, want %d: %q", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("record %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestRecordsLongLine(t *testing.T) {
	seq := strings.Repeat("ACGT", 100_000)
	in := "S\t1\t" + seq + "\nS\t2\tA\n"
	var lens []uint64
	err := Records(context.Background(), strings.NewReader(in), 'S', func(line []byte) error {
		seg, ok, err := ParseSegment(line)
		if err != nil || !ok {
			return fmt.Errorf("ok=%v err=%v", ok, err)
		}
		lens = append(lens, seg.Len)
		return nil
	})
	if err != nil {
		t.Fatalf("Records: %v", err)
	}
	if len(lens) != 2 || lens[0] != uint64(len(seq)) || lens[1] != 1 {
		t.Errorf("lengths = %v, want [%d 1]", lens, len(seq))
	}
}

func TestRecordsAnnotatesLine(t *testing.T) {
	in := "S\t1\tA\nS\tx\tA\n"
	err := Records(context.Background(), strings.NewReader(in), 'S', func(line []byte) error {
		_, _, err := ParseSegment(line)
		return err
	})
	if !errors.Is(err, ErrInvalidSegmentID) {
		t.Fatalf("err = %v, want ErrInvalidSegmentID", err)
	}
	if !strings.Contains(err.Error(), "line 2") {
		t.Errorf("error %q does not name line 2", err)
	}
}

func TestRecordsCanceled(t *testing.T) {
	var sb strings.Builder
	for i := range ctxCheckInterval + 1 {
		fmt.Fprintf(&sb, "S\t%d\tA\n", i)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := Records(ctx, strings.NewReader(sb.String()), 'S', func([]byte) error { return nil })
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestReadLinks(t *testing.T) {
	in := "S\t10\tA\nS\t11\tA\nL\t10\t+\t11\t-\t0M\nL\t11\t-\t10\n"
	remap := func(id uint32) (graph.Node, error) {
		if id < 10 || id > 11 {
			return 0, fmt.Errorf("unknown segment %d", id)
		}
		return graph.Node(id - 10), nil
	}
	edges, err := ReadLinks(context.Background(), strings.NewReader(in), remap)
	if err != nil {
		t.Fatalf("ReadLinks: %v", err)
	}
	if len(edges) != 1 {
		t.Fatalf("len(edges) = %d, want 1 (truncated L-line skipped)", len(edges))
	}
	want := graph.Edge{From: graph.NewOrientedNode(0, false), To: graph.NewOrientedNode(1, true)}
	if edges[0] != want {
		t.Errorf("edge = %v, want %v", edges[0], want)
	}

	_, err = ReadLinks(context.Background(), strings.NewReader("L\t10\t+\t99\t+\t0M\n"), remap)
	if err == nil {
		t.Error("expected error for link to unknown segment")
	}
}
