package extract

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/richardlehane/mscfb"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

// ole2Signature starts every compound file, Excel 97-2003 workbooks included.
var ole2Signature = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}

// BIFF record types read by readXLS.
const (
	recFormula    = 0x0006
	recEOF        = 0x000A
	recFilePass   = 0x002F
	recContinue   = 0x003C
	recBoundSheet = 0x0085
	recMulRK      = 0x00BD
	recSST        = 0x00FC
	recLabelSST   = 0x00FD
	recNumber     = 0x0203
	recLabel      = 0x0204
	recBoolErr    = 0x0205
	recString     = 0x0207
	recRK         = 0x027E
	recBOF        = 0x0809
)

// biffVersion8 is the BOF version of Excel 97 and later.
const biffVersion8 = 0x0600

// A BIFF8 sheet has at most 256 columns.
const maxXLSColumns = 256

var errTruncatedRecord = errors.New("truncated record")

var biffErrorCodes = map[byte]string{
	0x00: "#NULL!",
	0x07: "#DIV/0!",
	0x0F: "#VALUE!",
	0x17: "#REF!",
	0x1D: "#NAME?",
	0x24: "#NUM!",
	0x2A: "#N/A",
}

func isOLE2(content []byte) bool {
	return bytes.HasPrefix(content, ole2Signature)
}

// readXLS returns the name and rows of the first worksheet of an Excel
// 97-2003 workbook (BIFF8, or BIFF5 from Excel 5/95).
func readXLS(content []byte) (string, [][]string, error) {
	stream, err := xlsWorkbookStream(content)
	if err != nil {
		return "", nil, err
	}
	return parseBIFF(stream)
}

// xlsWorkbookStream returns the Workbook (BIFF8) or Book (BIFF5) stream of a compound file.
func xlsWorkbookStream(content []byte) ([]byte, error) {
	doc, err := mscfb.New(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("open compound file: %w", err)
	}
	for entry, err := doc.Next(); err == nil; entry, err = doc.Next() {
		if !strings.EqualFold(entry.Name, "Workbook") && !strings.EqualFold(entry.Name, "Book") {
			continue
		}
		if entry.Size <= 0 || entry.Size > int64(len(content)) {
			return nil, fmt.Errorf("%s stream has invalid size %d", entry.Name, entry.Size)
		}
		buf := make([]byte, entry.Size)
		if _, err := io.ReadFull(entry, buf); err != nil {
			return nil, fmt.Errorf("read %s stream: %w", entry.Name, err)
		}
		return buf, nil
	}
	return nil, errors.New("no Workbook stream, not an Excel 97-2003 file")
}

type biffRecord struct {
	id   uint16
	data []byte
}

// biffStream walks the records of a workbook stream from pos.
type biffStream struct {
	data []byte
	pos  int
}

func (s *biffStream) next() (biffRecord, error) {
	if s.pos+4 > len(s.data) {
		return biffRecord{}, io.EOF
	}
	id := binary.LittleEndian.Uint16(s.data[s.pos:])
	n := int(binary.LittleEndian.Uint16(s.data[s.pos+2:]))
	start := s.pos + 4
	if start+n > len(s.data) {
		return biffRecord{}, fmt.Errorf("record 0x%04X at offset %d: %w", id, s.pos, errTruncatedRecord)
	}
	s.pos = start + n
	return biffRecord{id: id, data: s.data[start:s.pos]}, nil
}

// peek returns the type of the next record, or 0 at the end of the stream.
func (s *biffStream) peek() uint16 {
	if s.pos+4 > len(s.data) {
		return 0
	}
	return binary.LittleEndian.Uint16(s.data[s.pos:])
}

type biffSheet struct {
	name      string
	offset    int
	worksheet bool
}

type biffWorkbook struct {
	biff8 bool
	sst   []string
}

func parseBIFF(stream []byte) (string, [][]string, error) {
	globals := &biffStream{data: stream}
	bof, err := globals.next()
	if err != nil || bof.id != recBOF || len(bof.data) < 2 {
		return "", nil, errors.New("workbook stream does not start with a BOF record")
	}
	wb := &biffWorkbook{biff8: binary.LittleEndian.Uint16(bof.data) >= biffVersion8}

	var sheets []biffSheet
loop:
	for {
		rec, err := globals.next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", nil, err
		}
		switch rec.id {
		case recEOF:
			break loop
		case recFilePass:
			return "", nil, errors.New("workbook is password protected")
		case recBoundSheet:
			sheet, err := wb.boundSheet(rec.data)
			if err != nil {
				return "", nil, err
			}
			if sheet.worksheet {
				sheets = append(sheets, sheet)
			}
		case recSST:
			parts := [][]byte{rec.data}
			for globals.peek() == recContinue {
				cont, err := globals.next()
				if err != nil {
					return "", nil, err
				}
				parts = append(parts, cont.data)
			}
			if wb.sst, err = parseSST(parts); err != nil {
				return "", nil, fmt.Errorf("shared strings: %w", err)
			}
		}
	}
	if len(sheets) == 0 {
		return "", nil, errors.New("workbook has no sheets")
	}
	rows, err := wb.readSheet(stream, sheets[0].offset)
	if err != nil {
		return "", nil, fmt.Errorf("read sheet %q: %w", sheets[0].name, err)
	}
	return sheets[0].name, trimTrailingEmptyRows(rows), nil
}

func (wb *biffWorkbook) boundSheet(data []byte) (biffSheet, error) {
	if len(data) < 7 {
		return biffSheet{}, fmt.Errorf("sheet entry: %w", errTruncatedRecord)
	}
	name, err := wb.text(data[6:], 1)
	if err != nil {
		return biffSheet{}, fmt.Errorf("sheet name: %w", err)
	}
	return biffSheet{
		name:      name,
		offset:    int(binary.LittleEndian.Uint32(data)),
		worksheet: data[5] == 0,
	}, nil
}

// text decodes a string with a lenSize-byte character count. BIFF8 strings
// carry an option byte after the count; BIFF5 strings are plain code page bytes.
func (wb *biffWorkbook) text(b []byte, lenSize int) (string, error) {
	if len(b) < lenSize {
		return "", errTruncatedRecord
	}
	cch := int(b[0])
	if lenSize == 2 {
		cch = int(binary.LittleEndian.Uint16(b))
	}
	pos := lenSize
	if !wb.biff8 {
		if pos+cch > len(b) {
			return "", errTruncatedRecord
		}
		return decodeCodePage(b[pos : pos+cch]), nil
	}
	if pos >= len(b) {
		if cch == 0 {
			return "", nil
		}
		return "", errTruncatedRecord
	}
	flags := b[pos]
	pos++
	if flags&0x08 != 0 {
		pos += 2
	}
	if flags&0x04 != 0 {
		pos += 4
	}
	wide := flags&0x01 != 0
	size := cch
	if wide {
		size *= 2
	}
	if pos+size > len(b) {
		return "", errTruncatedRecord
	}
	return decodeChars(b[pos:pos+size], wide), nil
}

// decodeChars decodes BIFF8 character data: UTF-16LE when wide, otherwise
// UTF-16 with the zero high bytes dropped, which is Latin-1.
func decodeChars(b []byte, wide bool) string {
	var (
		out []byte
		err error
	)
	if wide {
		out, err = unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewDecoder().Bytes(b)
	} else {
		out, err = charmap.ISO8859_1.NewDecoder().Bytes(b)
	}
	if err != nil {
		return string(b)
	}
	return string(out)
}

// decodeCodePage decodes BIFF5 string bytes, assuming the Windows Western code page.
func decodeCodePage(b []byte) string {
	out, err := charmap.Windows1252.NewDecoder().Bytes(b)
	if err != nil {
		return string(b)
	}
	return string(out)
}

// sstReader reads the shared string table across its CONTINUE records.
type sstReader struct {
	parts [][]byte
	part  int
	pos   int
}

func (r *sstReader) avail() int {
	return len(r.parts[r.part]) - r.pos
}

func (r *sstReader) nextPart() bool {
	if r.part+1 >= len(r.parts) {
		return false
	}
	r.part++
	r.pos = 0
	return true
}

func (r *sstReader) done() bool {
	for r.avail() == 0 {
		if !r.nextPart() {
			return true
		}
	}
	return false
}

func (r *sstReader) read(n int) ([]byte, error) {
	out := make([]byte, 0, n)
	for len(out) < n {
		if r.avail() == 0 {
			if !r.nextPart() {
				return nil, errTruncatedRecord
			}
			continue
		}
		k := min(n-len(out), r.avail())
		out = append(out, r.parts[r.part][r.pos:r.pos+k]...)
		r.pos += k
	}
	return out, nil
}

func (r *sstReader) skip(n int) error {
	for n > 0 {
		if r.avail() == 0 {
			if !r.nextPart() {
				return errTruncatedRecord
			}
			continue
		}
		k := min(n, r.avail())
		r.pos += k
		n -= k
	}
	return nil
}

// chars reads cch characters. A string split over a CONTINUE record resumes
// with a fresh option byte that may switch between one and two bytes per character.
func (r *sstReader) chars(cch int, wide bool) (string, error) {
	var sb strings.Builder
	for cch > 0 {
		if r.avail() == 0 {
			if !r.nextPart() {
				return "", errTruncatedRecord
			}
			if r.avail() == 0 {
				continue
			}
			wide = r.parts[r.part][0]&0x01 != 0
			r.pos = 1
			continue
		}
		width := 1
		if wide {
			width = 2
		}
		n := min(cch, r.avail()/width)
		if n == 0 {
			return "", errTruncatedRecord
		}
		sb.WriteString(decodeChars(r.parts[r.part][r.pos:r.pos+n*width], wide))
		r.pos += n * width
		cch -= n
	}
	return sb.String(), nil
}

func parseSST(parts [][]byte) ([]string, error) {
	r := &sstReader{parts: parts}
	head, err := r.read(8)
	if err != nil {
		return nil, err
	}
	unique := binary.LittleEndian.Uint32(head[4:])
	strs := make([]string, 0, min(unique, 1<<12))
	for i := uint32(0); i < unique && !r.done(); i++ {
		h, err := r.read(3)
		if err != nil {
			return nil, err
		}
		cch := int(binary.LittleEndian.Uint16(h))
		flags := h[2]
		var runs, ext int
		if flags&0x08 != 0 {
			b, err := r.read(2)
			if err != nil {
				return nil, err
			}
			runs = int(binary.LittleEndian.Uint16(b))
		}
		if flags&0x04 != 0 {
			b, err := r.read(4)
			if err != nil {
				return nil, err
			}
			ext = int(binary.LittleEndian.Uint32(b))
		}
		s, err := r.chars(cch, flags&0x01 != 0)
		if err != nil {
			return nil, err
		}
		if err := r.skip(4*runs + ext); err != nil {
			return nil, err
		}
		strs = append(strs, s)
	}
	return strs, nil
}

// biffGrid collects cell values into rows, within the table limits.
type biffGrid struct {
	rows  [][]string
	cells int
}

func (g *biffGrid) set(row, col int, value string) error {
	if value == "" {
		return nil
	}
	if col >= maxXLSColumns {
		return fmt.Errorf("%w: column %d is past the last column", ErrTableTooLarge, col+1)
	}
	for len(g.rows) <= row {
		g.rows = append(g.rows, nil)
	}
	r := g.rows[row]
	if col >= len(r) {
		g.cells += col + 1 - len(r)
		if g.cells > maxTableCells {
			return fmt.Errorf("%w: more than %d cells", ErrTableTooLarge, maxTableCells)
		}
		r = append(r, make([]string, col+1-len(r))...)
		g.rows[row] = r
	}
	r[col] = value
	return nil
}

func (wb *biffWorkbook) readSheet(stream []byte, offset int) ([][]string, error) {
	if offset < 0 || offset >= len(stream) {
		return nil, fmt.Errorf("sheet offset %d is outside the workbook stream", offset)
	}
	s := &biffStream{data: stream, pos: offset}
	if bof, err := s.next(); err != nil || bof.id != recBOF {
		return nil, errors.New("sheet does not start with a BOF record")
	}

	var (
		grid          biffGrid
		depth         int
		pendingString bool
		pendingRow    int
		pendingCol    int
	)
	for {
		rec, err := s.next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		d := rec.data
		switch rec.id {
		case recBOF:
			// Embedded chart substream.
			depth++
			continue
		case recEOF:
			if depth == 0 {
				return grid.rows, nil
			}
			depth--
			continue
		}
		if depth > 0 {
			continue
		}

		switch rec.id {
		case recLabelSST:
			if len(d) < 10 {
				return nil, fmt.Errorf("LABELSST: %w", errTruncatedRecord)
			}
			idx := binary.LittleEndian.Uint32(d[6:])
			if uint64(idx) >= uint64(len(wb.sst)) {
				return nil, fmt.Errorf("shared string %d out of range (%d strings)", idx, len(wb.sst))
			}
			err = grid.set(cellPos(d, wb.sst[idx]))
		case recLabel:
			if len(d) < 8 {
				return nil, fmt.Errorf("LABEL: %w", errTruncatedRecord)
			}
			var text string
			if text, err = wb.text(d[6:], 2); err == nil {
				err = grid.set(cellPos(d, text))
			}
		case recNumber:
			if len(d) < 14 {
				return nil, fmt.Errorf("NUMBER: %w", errTruncatedRecord)
			}
			err = grid.set(cellPos(d, formatNumber(math.Float64frombits(binary.LittleEndian.Uint64(d[6:])))))
		case recRK:
			if len(d) < 10 {
				return nil, fmt.Errorf("RK: %w", errTruncatedRecord)
			}
			err = grid.set(cellPos(d, formatNumber(rkValue(binary.LittleEndian.Uint32(d[6:])))))
		case recMulRK:
			if len(d) < 6 {
				return nil, fmt.Errorf("MULRK: %w", errTruncatedRecord)
			}
			row := int(binary.LittleEndian.Uint16(d))
			first := int(binary.LittleEndian.Uint16(d[2:]))
			for i := 0; i < (len(d)-6)/6 && err == nil; i++ {
				rk := binary.LittleEndian.Uint32(d[4+6*i+2:])
				err = grid.set(row, first+i, formatNumber(rkValue(rk)))
			}
		case recFormula:
			if len(d) < 14 {
				return nil, fmt.Errorf("FORMULA: %w", errTruncatedRecord)
			}
			res := d[6:14]
			if res[6] != 0xFF || res[7] != 0xFF {
				err = grid.set(cellPos(d, formatNumber(math.Float64frombits(binary.LittleEndian.Uint64(res)))))
				break
			}
			switch res[0] {
			case 0:
				// The text follows in a STRING record.
				pendingString = true
				pendingRow = int(binary.LittleEndian.Uint16(d))
				pendingCol = int(binary.LittleEndian.Uint16(d[2:]))
			case 1:
				err = grid.set(cellPos(d, formatBool(res[2])))
			case 2:
				err = grid.set(cellPos(d, biffErrorCodes[res[2]]))
			}
		case recString:
			if !pendingString {
				continue
			}
			pendingString = false
			var text string
			if text, err = wb.text(d, 2); err == nil {
				err = grid.set(pendingRow, pendingCol, text)
			}
		case recBoolErr:
			if len(d) < 8 {
				return nil, fmt.Errorf("BOOLERR: %w", errTruncatedRecord)
			}
			if d[7] == 0 {
				err = grid.set(cellPos(d, formatBool(d[6])))
			} else {
				err = grid.set(cellPos(d, biffErrorCodes[d[6]]))
			}
		}
		if err != nil {
			return nil, err
		}
	}
	return grid.rows, nil
}

// cellPos reads the row and column that start every cell record.
func cellPos(d []byte, value string) (int, int, string) {
	return int(binary.LittleEndian.Uint16(d)), int(binary.LittleEndian.Uint16(d[2:])), value
}

// rkValue decodes an RK number: bit 0 means divided by 100, bit 1 means the
// upper 30 bits are a signed integer rather than the top of an IEEE double.
func rkValue(rk uint32) float64 {
	var v float64
	if rk&0x02 != 0 {
		v = float64(int32(rk) >> 2)
	} else {
		v = math.Float64frombits(uint64(rk&0xFFFFFFFC) << 32)
	}
	if rk&0x01 != 0 {
		v /= 100
	}
	return v
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func formatBool(b byte) string {
	if b != 0 {
		return "TRUE"
	}
	return "FALSE"
}
