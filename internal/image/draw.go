package image

import (
	"fmt"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font/gofont/goregular"
)

const (
	marginLeft   = 80.0
	marginTop    = 100.0
	rowHeight    = 110.0
	rowGap       = 50.0
	laneGap      = 16.0
	beatWidth    = 60.0
	noteRadius   = 5.0
	rangeHeight  = 6.0
	marginBottom = 40.0
)

type colour struct{ r, g, b float64 }

var laneColours = []colour{
	{0.18, 0.65, 0.23}, // green
	{0.82, 0.16, 0.16}, // red
	{0.90, 0.78, 0.10}, // yellow
	{0.16, 0.33, 0.80}, // blue
	{0.90, 0.52, 0.10}, // orange
	{0.55, 0.25, 0.75}, // open
}

// Save renders the builder to a PNG at the given path.
func Save(builder *Builder, file string) error {
	width := int(marginLeft*2 + maxBeatsPerRow*beatWidth)
	height := int(marginTop + float64(len(builder.Rows))*(rowHeight+rowGap) + marginBottom)
	dc := gg.NewContext(width, height)

	dc.SetRGB(1, 1, 1)
	dc.Clear()

	font, err := truetype.Parse(goregular.TTF)
	if nil != err {
		return fmt.Errorf("unable to parse font: %w", err)
	}
	dc.SetFontFace(truetype.NewFace(font, &truetype.Options{Size: 24}))
	dc.SetRGB(0, 0, 0)
	header := builder.SongName
	if builder.Artist != "" {
		header += " - " + builder.Artist
	}
	if builder.Charter != "" {
		header += " (" + builder.Charter + ")"
	}
	dc.DrawString(header, marginLeft, 40)
	dc.SetFontFace(truetype.NewFace(font, &truetype.Options{Size: 13}))

	for row := range builder.Rows {
		drawRow(dc, builder, row)
	}

	if err := dc.SavePNG(file); nil != err {
		return fmt.Errorf("unable to save image: %w", err)
	}
	return nil
}

func rowTop(row int) float64 {
	return marginTop + float64(row)*(rowHeight+rowGap)
}

func drawRow(dc *gg.Context, builder *Builder, row int) {
	top := rowTop(row)
	bounds := builder.Rows[row]
	width := (bounds.End - bounds.Start) * beatWidth

	drawRanges(dc, builder, row, builder.GreenRanges, colour{0.25, 0.75, 0.25})
	drawRanges(dc, builder, row, builder.YellowRanges, colour{0.95, 0.85, 0.30})
	drawRanges(dc, builder, row, builder.RedRanges, colour{0.85, 0.25, 0.25})
	drawRanges(dc, builder, row, builder.BlueRanges, colour{0.30, 0.45, 0.90})

	// Lane lines.
	dc.SetRGB(0.6, 0.6, 0.6)
	dc.SetLineWidth(1)
	for lane := 0; lane < 6; lane++ {
		y := top + float64(lane)*laneGap
		dc.DrawLine(marginLeft, y, marginLeft+width, y)
		dc.Stroke()
	}

	for _, beat := range builder.BeatLines {
		if beat < bounds.Start || beat >= bounds.End {
			continue
		}
		x := marginLeft + (beat-bounds.Start)*beatWidth
		dc.SetRGBA(0, 0, 0, 0.25)
		dc.DrawLine(x, top, x, top+5*laneGap)
		dc.Stroke()
	}
	for _, beat := range builder.MeasureLines {
		if beat < bounds.Start || beat >= bounds.End {
			continue
		}
		x := marginLeft + (beat-bounds.Start)*beatWidth
		dc.SetRGBA(0, 0, 0, 0.8)
		dc.SetLineWidth(2)
		dc.DrawLine(x, top, x, top+5*laneGap)
		dc.Stroke()
		dc.SetLineWidth(1)
	}

	for _, note := range builder.Notes {
		if note.Beat < bounds.Start || note.Beat >= bounds.End {
			continue
		}
		x := marginLeft + (note.Beat-bounds.Start)*beatWidth
		lane := int(note.Lane)
		if lane > 5 {
			lane = 5
		}
		y := top + float64(lane)*laneGap
		c := laneColours[lane%len(laneColours)]
		if note.Length > 0 {
			dc.SetRGBA(c.r, c.g, c.b, 0.5)
			dc.DrawRectangle(x, y-2, note.Length*beatWidth, 4)
			dc.Fill()
		}
		if note.IsSp {
			dc.SetRGB(0.1, 0.6, 0.9)
		} else {
			dc.SetRGB(c.r, c.g, c.b)
		}
		dc.DrawCircle(x, y, noteRadius)
		dc.Fill()
		dc.SetRGB(0, 0, 0)
		dc.DrawCircle(x, y, noteRadius)
		dc.Stroke()
	}

	drawMeasureNumbers(dc, builder, row)
}

func drawRanges(dc *gg.Context, builder *Builder, row int, ranges []Range, c colour) {
	bounds := builder.Rows[row]
	top := rowTop(row)
	for _, r := range ranges {
		lo := r.Start
		if lo < bounds.Start {
			lo = bounds.Start
		}
		hi := r.End
		if hi > bounds.End {
			hi = bounds.End
		}
		if hi <= lo {
			continue
		}
		x := marginLeft + (lo-bounds.Start)*beatWidth
		dc.SetRGBA(c.r, c.g, c.b, 0.35)
		dc.DrawRectangle(x, top-rangeHeight-4, (hi-lo)*beatWidth, 5*laneGap+rangeHeight+8)
		dc.Fill()
	}
}

func drawMeasureNumbers(dc *gg.Context, builder *Builder, row int) {
	bounds := builder.Rows[row]
	top := rowTop(row)
	dc.SetRGB(0.2, 0.2, 0.2)
	for i, beat := range builder.MeasureLines {
		if beat < bounds.Start || beat >= bounds.End {
			continue
		}
		x := marginLeft + (beat-bounds.Start)*beatWidth
		dc.DrawString(fmt.Sprintf("%d", i+1), x+2, top-10)
		if i < len(builder.SpPercentValues) {
			dc.DrawString(fmt.Sprintf("%.0f%%", builder.SpPercentValues[i]*100),
				x+2, top+5*laneGap+16)
		}
	}
}
