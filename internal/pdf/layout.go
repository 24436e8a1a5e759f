package pdf

import (
	"context"
	"math"
	"sort"
	"strings"
	"unicode/utf8"

	lpdf "github.com/ledongthuc/pdf"

	"github.com/mlisboa17/assistente-pessoal-sub000/internal/domain/statement/parser"
)

const (
	// Y positions within the same bucket belong to one visual row.
	rowBucketPt = 2.0
	// Horizontal gap wide enough to mean a column boundary.
	columnGapPt = 12.0
	// Gap wide enough to mean a word boundary between glyph runs.
	wordGapPt = 1.5
	// Resolution of the column coverage histogram.
	binPt = 2.0
	// A whitespace channel narrower than this is just a wide word gap.
	minChannelBins = 3
	// Fallback glyph width when the file carries no font metrics.
	estCharWidthPt = 5.0
)

type textItem struct {
	x, y, w float64
	s       string
}

func (it textItem) end() float64 {
	if it.w > 0 {
		return it.x + it.w
	}
	return it.x + float64(utf8.RuneCountInString(it.s))*estCharWidthPt
}

// pageRows groups the page's positioned text into visual rows, top to bottom,
// each row sorted left to right.
func pageRows(r *lpdf.Reader, pageNr int) (rows [][]textItem) {
	defer func() {
		if recover() != nil {
			rows = nil
		}
	}()

	page := r.Page(pageNr)
	if page.V.IsNull() {
		return nil
	}
	content := page.Content()
	if len(content.Text) == 0 {
		return nil
	}

	byY := make(map[int][]textItem)
	for _, t := range content.Text {
		if strings.TrimSpace(t.S) == "" {
			continue
		}
		key := int(math.Round(t.Y / rowBucketPt))
		byY[key] = append(byY[key], textItem{x: t.X, y: t.Y, w: t.W, s: t.S})
	}

	keys := make([]int, 0, len(byY))
	for k := range byY {
		keys = append(keys, k)
	}
	// PDF Y grows bottom-up.
	sort.Sort(sort.Reverse(sort.IntSlice(keys)))

	for _, k := range keys {
		items := byY[k]
		sort.Slice(items, func(a, b int) bool { return items[a].x < items[b].x })
		rows = append(rows, items)
	}
	return rows
}

func joinRow(items []textItem) string {
	var b strings.Builder
	for i, it := range items {
		if i > 0 {
			gap := it.x - items[i-1].end()
			switch {
			case gap > columnGapPt:
				b.WriteString("  ")
			case gap > wordGapPt:
				b.WriteByte(' ')
			}
		}
		b.WriteString(it.s)
	}
	return b.String()
}

// columnCuts finds vertical whitespace channels shared by most rows of a page
// and returns their centers as column boundaries.
func columnCuts(rows [][]textItem) []float64 {
	minX, maxX := math.MaxFloat64, -math.MaxFloat64
	total := 0
	for _, row := range rows {
		for _, it := range row {
			minX = math.Min(minX, it.x)
			maxX = math.Max(maxX, it.end())
			total++
		}
	}
	if total == 0 || maxX-minX < binPt {
		return nil
	}

	n := int((maxX-minX)/binPt) + 1
	cover := make([]int, n)
	for _, row := range rows {
		for _, it := range row {
			lo := int((it.x - minX) / binPt)
			hi := int((it.end() - minX) / binPt)
			for b := lo; b <= hi && b < n; b++ {
				if b >= 0 {
					cover[b]++
				}
			}
		}
	}

	// A channel may be grazed by a few rows (wide descriptions, title
	// lines) and still separate columns.
	limit := len(rows) / 10
	if limit < 1 {
		limit = 1
	}

	var cuts []float64
	start := -1
	for b := 0; b <= n; b++ {
		open := b < n && cover[b] <= limit
		if open && start < 0 {
			start = b
		}
		if !open && start >= 0 {
			if b-start >= minChannelBins {
				cuts = append(cuts, minX+float64(start+b)/2*binPt)
			}
			start = -1
		}
	}
	return cuts
}

func splitByCuts(row []textItem, cuts []float64) []string {
	cells := make([]string, len(cuts)+1)
	for _, it := range row {
		col := sort.SearchFloat64s(cuts, it.x)
		if cells[col] != "" {
			cells[col] += " "
		}
		cells[col] += it.s
	}
	for i := range cells {
		cells[i] = strings.TrimSpace(cells[i])
	}
	return cells
}

func splitByGaps(row []textItem) []string {
	var cells []string
	var cur strings.Builder
	for i, it := range row {
		if i > 0 {
			gap := it.x - row[i-1].end()
			switch {
			case gap > columnGapPt:
				cells = append(cells, strings.TrimSpace(cur.String()))
				cur.Reset()
			case gap > wordGapPt:
				cur.WriteByte(' ')
			}
		}
		cur.WriteString(it.s)
	}
	if s := strings.TrimSpace(cur.String()); s != "" || len(cells) > 0 {
		cells = append(cells, s)
	}
	return cells
}

// ColumnTables reconstructs page tables from whitespace channels: column
// boundaries are voted on by all rows of the page, so ragged cells still land
// in the right column.
type ColumnTables struct {
	ex *Extractor
}

func NewColumnTables(ex *Extractor) *ColumnTables {
	return &ColumnTables{ex: ex}
}

func (t *ColumnTables) Name() string { return "columns" }

func (t *ColumnTables) ExtractTables(ctx context.Context, data []byte, password string) ([]parser.Table, error) {
	r, _, err := t.ex.open(data, password)
	if err != nil {
		return nil, err
	}

	var tables []parser.Table
	for i := 1; i <= pageCount(r); i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rows := pageRows(r, i)
		if len(rows) < 2 {
			continue
		}
		cuts := columnCuts(rows)
		if len(cuts) == 0 {
			continue
		}
		grid := make([][]string, 0, len(rows))
		for _, row := range rows {
			grid = append(grid, splitByCuts(row, cuts))
		}
		tables = append(tables, parser.Table{Page: i, Rows: grid})
	}
	return tables, nil
}

// GapTables splits each row on its own wide gaps. Less stable than voted
// columns, but it survives pages where no shared channel exists.
type GapTables struct {
	ex *Extractor
}

func NewGapTables(ex *Extractor) *GapTables {
	return &GapTables{ex: ex}
}

func (t *GapTables) Name() string { return "gaps" }

func (t *GapTables) ExtractTables(ctx context.Context, data []byte, password string) ([]parser.Table, error) {
	r, _, err := t.ex.open(data, password)
	if err != nil {
		return nil, err
	}

	var tables []parser.Table
	for i := 1; i <= pageCount(r); i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rows := pageRows(r, i)
		if len(rows) == 0 {
			continue
		}
		var grid [][]string
		for _, row := range rows {
			if cells := splitByGaps(row); len(cells) > 0 {
				grid = append(grid, cells)
			}
		}
		if len(grid) > 0 {
			tables = append(tables, parser.Table{Page: i, Rows: grid})
		}
	}
	return tables, nil
}
