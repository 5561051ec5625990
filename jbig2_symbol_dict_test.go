// Copyright 2026 肖其顿 (XIAO QI DUN)
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package jbig2dec

import (
	"encoding/binary"
	"errors"
	"reflect"
	"testing"
)

func TestParseSymbolDictHeaderFixture(t *testing.T) {
	seg, err := ParseSegmentHeader(NewBitStream(mustHex(t, "00 00 00 09 00 01 02 00 00 00 1B")))
	if err != nil {
		t.Fatal(err)
	}
	h, err := ParseSymbolDictHeader(seg, NewBitStream(mustHex(t, "08 00 02 FF 00 00 00 02 00 00 00 02")))
	if err != nil {
		t.Fatal(err)
	}
	if h.SDHUFF || h.SDREFAGG {
		t.Fatalf("got huffman=%v refagg=%v, want arithmetic without refinement", h.SDHUFF, h.SDREFAGG)
	}
	if h.SDTEMPLATE != 2 {
		t.Fatalf("template got %d, want 2", h.SDTEMPLATE)
	}
	if !reflect.DeepEqual(h.SDAT, []ATPixel{{X: 2, Y: -1}}) {
		t.Fatalf("AT got %v, want [(2,-1)]", h.SDAT)
	}
	if h.SDNUMEXSYMS != 2 || h.SDNUMNEWSYMS != 2 {
		t.Fatalf("exported %d new %d, want 2 and 2", h.SDNUMEXSYMS, h.SDNUMNEWSYMS)
	}
}

func TestParseSymbolDictHeaderErrors(t *testing.T) {
	seg := &SegmentHeader{Number: 1}
	tests := []struct {
		name string
		data string
		want error
	}{
		{"reserved DH", "00 09 00 00 00 01 00 00 00 01", ErrMalformedSymbolDictionary},
		{"reserved DW", "00 21 00 00 00 01 00 00 00 01", ErrMalformedSymbolDictionary},
		{"too many new symbols", "00 01 00 00 00 01 00 01 00 00", ErrMalformedSymbolDictionary},
		{"truncated AT", "00 00 03 FF 01", ErrTruncatedStream},
		{"truncated counts", "00 01 00 00 00 01", ErrTruncatedStream},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseSymbolDictHeader(seg, NewBitStream(mustHex(t, tt.data)))
			if !errors.Is(err, tt.want) {
				t.Fatalf("got %v, want %v", err, tt.want)
			}
		})
	}
}

func TestParseSymbolDictHeaderSelectors(t *testing.T) {
	// SDHUFF, SDREFAGG, DH=B.5, DW=custom, BMSIZE=custom, AGGINST=B.1, 细化模板0
	h, err := ParseSymbolDictHeader(&SegmentHeader{}, NewBitStream(mustHex(t, "00 77 FF FF FE FE 00 00 00 01 00 00 00 01")))
	if err != nil {
		t.Fatal(err)
	}
	if h.DH != 5 || h.DW != TableCustom || h.BMSIZE != TableCustom || h.AGGINST != 1 {
		t.Fatalf("selectors got DH=%v DW=%v BMSIZE=%v AGGINST=%v", h.DH, h.DW, h.BMSIZE, h.AGGINST)
	}
	if !reflect.DeepEqual(h.SDRAT, []ATPixel{{X: -1, Y: -1}, {X: -2, Y: -2}}) {
		t.Fatalf("refinement AT got %v", h.SDRAT)
	}
}

// symbolA 与 symbolB 为高度5的测试符号
var (
	symbolA = imageFromRows(
		"###",
		"#.#",
		"###",
		"#.#",
		"#.#",
	)
	symbolB = imageFromRows(
		"####",
		"#...",
		"###.",
		"#...",
		"####",
	)
	symbolC = imageFromRows(
		"##",
		"##",
	)
)

// encodeSymbolDictArith 算术编码新符号(不含细化), classes按高度类分组
func encodeSymbolDictArith(e *mqEncoder, template uint8, classes [][]*Image, exportRuns []int32) {
	iadh, iadw, iaex := newIntEncoder(), newIntEncoder(), newIntEncoder()
	gb := newArithCtxs(genericContextSize(template))
	at := nominalAT(template)
	var prevH int32
	for _, class := range classes {
		h := class[0].Height()
		iadh.encode(e, h-prevH)
		prevH = h
		var prevW int32
		for _, sym := range class {
			iadw.encode(e, sym.Width()-prevW)
			prevW = sym.Width()
			encodeGeneric(e, gb, sym, template, false, at)
		}
		iadw.encodeOOB(e)
	}
	for _, r := range exportRuns {
		iaex.encode(e, r)
	}
}

// symbolDictData 算术编码的符号字典段数据
func symbolDictData(template uint8, classes [][]*Image, exportRuns []int32, exported uint32) []byte {
	out := binary.BigEndian.AppendUint16(nil, uint16(template)<<10)
	at := nominalAT(template)
	n := 1
	if template == 0 {
		n = 4
	}
	for i := 0; i < n; i++ {
		out = append(out, byte(at[2*i]), byte(at[2*i+1]))
	}
	var total uint32
	for _, c := range classes {
		total += uint32(len(c))
	}
	out = append(out, be32(exported)...)
	out = append(out, be32(total)...)
	e := newMQEncoder()
	encodeSymbolDictArith(e, template, classes, exportRuns)
	return append(out, e.flush()...)
}

func newTestSDDProc(t *testing.T) *SDDProc {
	t.Helper()
	tables, err := newStandardTableSet()
	if err != nil {
		t.Fatal(err)
	}
	return NewSDDProc(tables)
}

func TestSymbolDictArith(t *testing.T) {
	classes := [][]*Image{{symbolC}, {symbolA, symbolB}}
	for template := uint8(0); template < 4; template++ {
		e := newMQEncoder()
		encodeSymbolDictArith(e, template, classes, []int32{1, 2})
		sdd := newTestSDDProc(t)
		sdd.SDTEMPLATE = template
		sdd.SDAT = nominalAT(template)
		sdd.SDNUMNEWSYMS = 3
		sdd.SDNUMEXSYMS = 2
		dict, err := sdd.DecodeArith(NewArithDecoder(NewBitStream(e.flush())), newArithCtxs(genericContextSize(template)), nil)
		if err != nil {
			t.Fatalf("template %d: %v", template, err)
		}
		if dict.NumSymbols() != 2 || !sameImage(dict.Symbol(0), symbolA) || !sameImage(dict.Symbol(1), symbolB) {
			t.Fatalf("template %d: exported symbols mismatch", template)
		}
		if dict.Symbol(2) != nil || dict.Symbol(-1) != nil {
			t.Fatalf("out of range symbol should be nil")
		}
	}
}

func TestSymbolDictExportErrors(t *testing.T) {
	tests := []struct {
		name     string
		runs     []int32
		exported uint32
	}{
		{"count mismatch", []int32{0, 3}, 2},
		{"overrun", []int32{0, 4}, 3},
		{"negative run", []int32{-1}, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newMQEncoder()
			encodeSymbolDictArith(e, 2, [][]*Image{{symbolC}, {symbolA, symbolB}}, tt.runs)
			sdd := newTestSDDProc(t)
			sdd.SDTEMPLATE = 2
			sdd.SDAT = nominalAT(2)
			sdd.SDNUMNEWSYMS = 3
			sdd.SDNUMEXSYMS = tt.exported
			_, err := sdd.DecodeArith(NewArithDecoder(NewBitStream(e.flush())), newArithCtxs(genericContextSize(2)), nil)
			if !errors.Is(err, ErrMalformedSymbolDictionary) {
				t.Fatalf("got %v, want ErrMalformedSymbolDictionary", err)
			}
		})
	}
}

func TestSymbolDictTooFewSymbols(t *testing.T) {
	e := newMQEncoder()
	iadh, iadw := newIntEncoder(), newIntEncoder()
	iadh.encode(e, 2)
	iadw.encode(e, 2)
	encodeGeneric(e, newArithCtxs(genericContextSize(2)), symbolC, 2, false, nominalAT(2))
	iadw.encodeOOB(e)
	iadh.encodeOOB(e)
	sdd := newTestSDDProc(t)
	sdd.SDTEMPLATE = 2
	sdd.SDAT = nominalAT(2)
	sdd.SDNUMNEWSYMS = 2
	sdd.SDNUMEXSYMS = 2
	_, err := sdd.DecodeArith(NewArithDecoder(NewBitStream(e.flush())), newArithCtxs(genericContextSize(2)), nil)
	if !errors.Is(err, ErrMalformedSymbolDictionary) {
		t.Fatalf("got %v, want ErrMalformedSymbolDictionary", err)
	}
}

func TestSymbolDictHuffmanCollective(t *testing.T) {
	sdd := newTestSDDProc(t)
	std := sdd.tables
	sdd.SDHUFF = true
	sdd.SDHUFFDH = std.get(4)
	sdd.SDHUFFDW = std.get(2)
	sdd.SDHUFFBMSIZE = std.get(1)
	sdd.SDNUMNEWSYMS = 2
	sdd.SDNUMEXSYMS = 2
	wide := NewImage(7, 5)
	symbolA.ComposeTo(wide, 0, 0, ComposeOr)
	symbolB.ComposeTo(wide, 3, 0, ComposeOr)
	w := &bitWriter{}
	writeHuffman(w, sdd.SDHUFFDH, 5)
	writeHuffman(w, sdd.SDHUFFDW, 3)
	writeHuffman(w, sdd.SDHUFFDW, 1)
	writeHuffmanOOB(w, sdd.SDHUFFDW)
	writeHuffman(w, sdd.SDHUFFBMSIZE, 0)
	w.writeBytes(wide.Data())
	writeHuffman(w, std.get(1), 0)
	writeHuffman(w, std.get(1), 2)
	dict, err := sdd.DecodeHuffman(NewBitStream(w.bytes()), nil)
	if err != nil {
		t.Fatal(err)
	}
	if dict.NumSymbols() != 2 || !sameImage(dict.Symbol(0), symbolA) || !sameImage(dict.Symbol(1), symbolB) {
		t.Fatalf("collective bitmap split mismatch")
	}
}

func TestSymbolDictHuffmanMissingTable(t *testing.T) {
	sdd := newTestSDDProc(t)
	sdd.SDHUFF = true
	sdd.SDNUMNEWSYMS = 1
	if _, err := sdd.DecodeHuffman(NewBitStream(nil), nil); !errors.Is(err, ErrMalformedSymbolDictionary) {
		t.Fatalf("got %v, want ErrMalformedSymbolDictionary", err)
	}
}

func TestSymbolDictRefinedSymbol(t *testing.T) {
	refined := imageFromRows(
		"###",
		"###",
		"###",
		"#.#",
		"#.#",
	)
	e := newMQEncoder()
	iadh, iadw, iaai, iaex := newIntEncoder(), newIntEncoder(), newIntEncoder(), newIntEncoder()
	text := newTextIntEncoders(1)
	iadh.encode(e, 5)
	iadw.encode(e, 3)
	iaai.encode(e, 1)
	text.iaid.encode(e, 0)
	text.iardx.encode(e, 0)
	text.iardy.encode(e, 0)
	g := NewGRRDProc()
	g.GRTEMPLATE = 1
	g.GRW, g.GRH = 3, 5
	g.GRREFERENCE = symbolA
	encodeRefinement(e, newArithCtxs(refinementContextSize(1)), refined, g)
	iadw.encodeOOB(e)
	iaex.encode(e, 1)
	iaex.encode(e, 1)
	sdd := newTestSDDProc(t)
	sdd.SDREFAGG = true
	sdd.SDRTEMPLATE = 1
	sdd.SDINSYMS = []*Image{symbolA}
	sdd.SDNUMINSYMS = 1
	sdd.SDNUMNEWSYMS = 1
	sdd.SDNUMEXSYMS = 1
	dict, err := sdd.DecodeArith(NewArithDecoder(NewBitStream(e.flush())), newArithCtxs(genericContextSize(0)), newArithCtxs(refinementContextSize(1)))
	if err != nil {
		t.Fatal(err)
	}
	if dict.NumSymbols() != 1 || !sameImage(dict.Symbol(0), refined) {
		t.Fatalf("refined symbol mismatch")
	}
}

func TestSymbolDictAggregate(t *testing.T) {
	e := newMQEncoder()
	iadh, iadw, iaai, iaex := newIntEncoder(), newIntEncoder(), newIntEncoder(), newIntEncoder()
	text := newTextIntEncoders(1)
	iadh.encode(e, 5)
	iadw.encode(e, 7)
	iaai.encode(e, 2)
	trd := &TRDProc{SBSYMS: []*Image{symbolA}, SBREFINE: true, REFCORNER: CornerTopLeft}
	encodeTextStrip(e, text, trd, 0, []textInstance{{s: 0, id: 0}, {s: 4, id: 0}})
	iadw.encodeOOB(e)
	iaex.encode(e, 0)
	iaex.encode(e, 2)
	sdd := newTestSDDProc(t)
	sdd.SDREFAGG = true
	sdd.SDINSYMS = []*Image{symbolA}
	sdd.SDNUMINSYMS = 1
	sdd.SDNUMNEWSYMS = 1
	sdd.SDNUMEXSYMS = 2
	dict, err := sdd.DecodeArith(NewArithDecoder(NewBitStream(e.flush())), newArithCtxs(genericContextSize(0)), newArithCtxs(refinementContextSize(0)))
	if err != nil {
		t.Fatal(err)
	}
	want := NewImage(7, 5)
	symbolA.ComposeTo(want, 0, 0, ComposeOr)
	symbolA.ComposeTo(want, 4, 0, ComposeOr)
	if dict.NumSymbols() != 2 || dict.Symbol(0) != symbolA || !sameImage(dict.Symbol(1), want) {
		t.Fatalf("aggregate symbol mismatch")
	}
}

func TestSymbolDictAnnexHGolden(t *testing.T) {
	data := mustHex(t, "00 00 00 09 00 01 02 00 00 00 1B"+
		" 08 00 02 FF 00 00 00 02 00 00 00 02"+
		" 4F E7 8C 20 0E 1D C7 CF 01 11 C4 B2 6F FF AC")
	d, err := newDocument(data, nil, true, 0)
	if err != nil {
		t.Fatal(err)
	}
	seg, err := d.nextSegment()
	if err != nil {
		t.Fatal(err)
	}
	if _, err := d.process(seg); err != nil {
		t.Fatal(err)
	}
	if seg.ResultType != ResultSymbolDict {
		t.Fatalf("result type got %v, want symbol dictionary", seg.ResultType)
	}
	want := []*Image{
		imageFromRows(
			".####.",
			"#....#",
			"#.....",
			"#.....",
			"#....#",
			".####.",
		),
		imageFromRows(
			".####.",
			".....#",
			".#####",
			"#....#",
			"#....#",
			".#####",
		),
	}
	dict := seg.SymbolDict
	if dict.NumSymbols() != len(want) {
		t.Fatalf("symbols got %d, want %d", dict.NumSymbols(), len(want))
	}
	for i, w := range want {
		if !sameImage(dict.Symbol(i), w) {
			t.Fatalf("symbol %d does not match the reference glyph", i)
		}
	}
}

func TestSymbolDictExportCountBound(t *testing.T) {
	tests := []struct {
		name     string
		inputs   []*Image
		newSyms  uint32
		exported uint32
	}{
		{"no symbols", nil, 0, 0xFFFFFFFF},
		{"one past inputs", []*Image{symbolA, symbolB}, 0, 3},
		{"huge with inputs", []*Image{symbolA}, 0, 0x80000000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sdd := newTestSDDProc(t)
			sdd.SDTEMPLATE = 2
			sdd.SDAT = nominalAT(2)
			sdd.SDINSYMS = tt.inputs
			sdd.SDNUMINSYMS = uint32(len(tt.inputs))
			sdd.SDNUMNEWSYMS = tt.newSyms
			sdd.SDNUMEXSYMS = tt.exported
			_, err := sdd.DecodeArith(NewArithDecoder(NewBitStream(nil)), newArithCtxs(genericContextSize(2)), nil)
			if !errors.Is(err, ErrMalformedSymbolDictionary) {
				t.Fatalf("got %v, want ErrMalformedSymbolDictionary", err)
			}
		})
	}
}

func TestSymbolDictRefinesNewSymbol(t *testing.T) {
	first := imageFromRows(
		"###",
		"###",
		"###",
		"#.#",
		"#.#",
	)
	second := imageFromRows(
		"###",
		"#.#",
		"###",
		"#.#",
		"###",
	)
	e := newMQEncoder()
	iadh, iadw, iaai, iaex := newIntEncoder(), newIntEncoder(), newIntEncoder(), newIntEncoder()
	text := newTextIntEncoders(symbolCodeLen(3))
	gr := newArithCtxs(refinementContextSize(1))
	iadh.encode(e, 5)
	for _, step := range []struct {
		target *Image
		ref    *Image
		id     uint32
		dw     int32
	}{
		{first, symbolA, 0, 3},
		{second, first, 1, 0},
	} {
		iadw.encode(e, step.dw)
		iaai.encode(e, 1)
		text.iaid.encode(e, step.id)
		text.iardx.encode(e, 0)
		text.iardy.encode(e, 0)
		g := NewGRRDProc()
		g.GRTEMPLATE = 1
		g.GRW, g.GRH = 3, 5
		g.GRREFERENCE = step.ref
		encodeRefinement(e, gr, step.target, g)
	}
	iadw.encodeOOB(e)
	iaex.encode(e, 1)
	iaex.encode(e, 2)
	sdd := newTestSDDProc(t)
	sdd.SDREFAGG = true
	sdd.SDRTEMPLATE = 1
	sdd.SDINSYMS = []*Image{symbolA}
	sdd.SDNUMINSYMS = 1
	sdd.SDNUMNEWSYMS = 2
	sdd.SDNUMEXSYMS = 2
	dict, err := sdd.DecodeArith(NewArithDecoder(NewBitStream(e.flush())), newArithCtxs(genericContextSize(0)), newArithCtxs(refinementContextSize(1)))
	if err != nil {
		t.Fatal(err)
	}
	if dict.NumSymbols() != 2 || !sameImage(dict.Symbol(0), first) || !sameImage(dict.Symbol(1), second) {
		t.Fatalf("refined symbols mismatch")
	}
}
