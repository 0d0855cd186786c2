package xlsxpkg

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"regexp"
	"strings"
)

// legacyDateTimeFormat — точный код формата, который исторически
// писала целевая программа. Совпадение с ним выигрывает у любой
// эвристики.
const legacyDateTimeFormat = "yyyy-mm-dd hh:mm:ss"

// Первый допустимый идентификатор пользовательского формата.
const firstCustomNumFmtID = 164

// Встроенные форматы дат SpreadsheetML: они не объявляются в
// numFmts, но ячейки могут на них ссылаться.
var builtinDateFormats = map[int]string{
	14: "mm-dd-yy",
	15: "d-mmm-yy",
	16: "d-mmm",
	17: "mmm-yy",
	18: "h:mm AM/PM",
	19: "h:mm:ss AM/PM",
	20: "h:mm",
	21: "h:mm:ss",
	22: "m/d/yy h:mm",
}

// Токены дат и времени для эвристической оценки кода формата.
var dateTokens = []string{"Y", "YY", "YYYY", "M", "MM", "D", "DD", "H", "HH", "HH:MM", "HH:MM:SS"}

// Порог: кандидат принимается только со счётом строго выше трёх.
const dateScoreThreshold = 3

type xmlStyleSheet struct {
	XMLName xml.Name `xml:"styleSheet"`
	NumFmts []struct {
		ID   int    `xml:"numFmtId,attr"`
		Code string `xml:"formatCode,attr"`
	} `xml:"numFmts>numFmt"`
	CellXfs []struct {
		NumFmtID int `xml:"numFmtId,attr"`
	} `xml:"cellXfs>xf"`
}

// dateTokenScore считает, сколько токенов дат и времени встречается
// в коде формата.
func dateTokenScore(code string) int {
	upper := strings.ToUpper(code)
	score := 0
	for _, tok := range dateTokens {
		if strings.Contains(upper, tok) {
			score++
		}
	}
	return score
}

// ResolveDateTimeStyle возвращает индекс ячеечного стиля, чей код
// формата отображает серийное число как календарный текст.
// Порядок: точное совпадение с наследуемым кодом, затем лучший
// эвристический кандидат со счётом выше порога, затем синтез нового
// формата и стиля. Результат вычисляется один раз на патч и
// переиспользуется для всех ячеек дат.
func (p *Package) ResolveDateTimeStyle() (int, error) {
	if p.dateStyle >= 0 {
		return p.dateStyle, nil
	}

	data, err := p.Part(partStyles)
	if err != nil {
		return 0, err
	}

	var ss xmlStyleSheet
	if err := xml.Unmarshal(data, &ss); err != nil {
		return 0, &FormatError{Path: p.path, Part: partStyles, Err: err}
	}

	codes := make(map[int]string, len(ss.NumFmts)+len(builtinDateFormats))
	for id, code := range builtinDateFormats {
		codes[id] = code
	}
	maxID := firstCustomNumFmtID - 1
	for _, nf := range ss.NumFmts {
		codes[nf.ID] = nf.Code
		if nf.ID > maxID {
			maxID = nf.ID
		}
	}

	bestIdx, bestScore := -1, 0
	for idx, xf := range ss.CellXfs {
		code, ok := codes[xf.NumFmtID]
		if !ok {
			continue
		}
		if code == legacyDateTimeFormat {
			p.dateStyle = idx
			return idx, nil
		}
		if score := dateTokenScore(code); score > bestScore {
			bestIdx, bestScore = idx, score
		}
	}
	if bestIdx >= 0 && bestScore > dateScoreThreshold {
		p.dateStyle = bestIdx
		return bestIdx, nil
	}

	styleIdx, err := p.synthesizeDateStyle(data, maxID+1, len(ss.CellXfs))
	if err != nil {
		return 0, err
	}
	p.dateStyle = styleIdx
	return styleIdx, nil
}

var countAttrRe = regexp.MustCompile(`count="(\d+)"`)

// synthesizeDateStyle дописывает в styles.xml новый числовой формат
// с наследуемым кодом и ссылающуюся на него запись cellXfs.
// Возвращает индекс новой записи.
func (p *Package) synthesizeDateStyle(data []byte, numFmtID, styleIdx int) (int, error) {
	numFmt := fmt.Sprintf(`<numFmt numFmtId="%d" formatCode="%s"/>`, numFmtID, legacyDateTimeFormat)

	if idx := bytes.Index(data, []byte("</numFmts>")); idx >= 0 {
		data = splice(data, idx, idx, numFmt)
		data = bumpCount(data, "<numFmts")
	} else {
		// Элемент numFmts обязан идти первым ребёнком styleSheet.
		open := bytes.Index(data, []byte("<styleSheet"))
		if open < 0 {
			return 0, &FormatError{Path: p.path, Part: partStyles, Err: fmt.Errorf("нет корневого элемента styleSheet")}
		}
		gt := bytes.IndexByte(data[open:], '>')
		if gt < 0 {
			return 0, &FormatError{Path: p.path, Part: partStyles, Err: fmt.Errorf("незакрытый элемент styleSheet")}
		}
		at := open + gt + 1
		data = splice(data, at, at, `<numFmts count="1">`+numFmt+`</numFmts>`)
	}

	xf := fmt.Sprintf(`<xf numFmtId="%d" fontId="0" fillId="0" borderId="0" xfId="0" applyNumberFormat="1"/>`, numFmtID)
	idx := bytes.Index(data, []byte("</cellXfs>"))
	if idx < 0 {
		return 0, &FormatError{Path: p.path, Part: partStyles, Err: fmt.Errorf("нет элемента cellXfs")}
	}
	data = splice(data, idx, idx, xf)
	data = bumpCount(data, "<cellXfs")

	p.setPart(partStyles, data)
	if err := p.commit(); err != nil {
		return 0, err
	}
	return styleIdx, nil
}

// splice заменяет байты [from:to) строкой ins.
func splice(data []byte, from, to int, ins string) []byte {
	out := make([]byte, 0, len(data)-(to-from)+len(ins))
	out = append(out, data[:from]...)
	out = append(out, ins...)
	out = append(out, data[to:]...)
	return out
}

// bumpCount увеличивает атрибут count в открывающем теге элемента.
func bumpCount(data []byte, openTag string) []byte {
	start := bytes.Index(data, []byte(openTag))
	if start < 0 {
		return data
	}
	gt := bytes.IndexByte(data[start:], '>')
	if gt < 0 {
		return data
	}
	tag := data[start : start+gt+1]
	m := countAttrRe.FindSubmatch(tag)
	if m == nil {
		return data
	}
	n := 0
	fmt.Sscanf(string(m[1]), "%d", &n)
	patched := countAttrRe.ReplaceAll(tag, []byte(fmt.Sprintf(`count="%d"`, n+1)))
	return splice(data, start, start+gt+1, string(patched))
}
