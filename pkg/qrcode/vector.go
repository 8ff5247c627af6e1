package qrcode

import (
	"strconv"
	"strings"
)

// renderSVG draws the symbol as one stroked path of horizontal runs, each
// run centred on its row (y+0.5) and one unit thick.
func renderSVG(m *Matrix, margin int, fg, bg Color) string {
	qrSize := strconv.Itoa(m.Size + 2*margin)

	var sb strings.Builder
	sb.WriteString(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 `)
	sb.WriteString(qrSize + " " + qrSize)
	sb.WriteString(`" shape-rendering="crispEdges">`)

	if bg.A > 0 {
		sb.WriteString(`<path ` + bg.svgAttr("fill") + ` d="M0 0h` + qrSize + `v` + qrSize + `H0z"/>`)
	}

	sb.WriteString(`<path ` + fg.svgAttr("stroke") + ` d="`)
	writeRuns(&sb, m, margin)
	sb.WriteString(`"/></svg>` + "\n")

	return sb.String()
}

func writeRuns(sb *strings.Builder, m *Matrix, margin int) {
	moveBy := 0
	for row := 0; row < m.Size; row++ {
		newRow := true
		runLength := 0
		for col := 0; col < m.Size; col++ {
			if !m.Dark(col, row) {
				moveBy++
				continue
			}
			runLength++
			if col == 0 || !m.Dark(col-1, row) {
				if newRow {
					sb.WriteString("M" + strconv.Itoa(col+margin) + " " +
						strconv.FormatFloat(0.5+float64(row+margin), 'f', -1, 64))
				} else {
					sb.WriteString("m" + strconv.Itoa(moveBy) + " 0")
				}
				moveBy = 0
				newRow = false
			}
			if col+1 >= m.Size || !m.Dark(col+1, row) {
				sb.WriteString("h" + strconv.Itoa(runLength))
				runLength = 0
			}
		}
	}
}
