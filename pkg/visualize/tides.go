package visualize

import (
	"fmt"
	"io"
	"time"

	"github.com/aotearoait/tidewatch/pkg/boat"
	"github.com/aotearoait/tidewatch/pkg/niwa"
	"github.com/aotearoait/tidewatch/pkg/timetricks"
)

const (
	width  = 1200
	height = 300

	// metersOfRange is the vertical scale: the image spans from -0.5m to
	// metersOfRange-0.5m of tide height.
	metersOfRange = 4.0
)

// Tidal renders one day of the tide curve as an SVG, with the safe launch
// window shaded.
type Tidal struct {
	date   time.Time
	preds  niwa.Predictions
	window boat.Window
}

func NewTidal(preds niwa.Predictions, window boat.Window) *Tidal {
	return &Tidal{
		preds:  preds,
		window: window,
	}
}

func (img *Tidal) SetDate(t time.Time) {
	img.date = timetricks.TrimClock(t)
}

func (img *Tidal) Encode(w io.Writer) (int, error) {
	var n int
	var err error
	io := func(nextn int, nexterr error) {
		n += nextn
		if nexterr != nil {
			err = nexterr
		}
	}

	io(fmt.Fprintf(w, `<svg viewBox="0 0 %d %d" xmlns="http://www.w3.org/2000/svg">`, width, height))

	// Shade the safe launch window where it crosses this day.
	if !img.window.Start.IsZero() {
		x1 := img.timeToX(img.window.Start)
		x2 := img.timeToX(img.window.End)
		if x2 > 0 && x1 < width {
			x1, x2 = clamp(x1), clamp(x2)
			io(fmt.Fprintf(w, `<rect class="safe" fill="palegreen" x="%d" y="%d" width="%d" height="%d"/>`,
				x1, 0, x2-x1, height))
		}
	}

	// Choose the first extremum to start from. Should be off screen; if
	// not, just start at the beginning.
	i, ok := img.indexPredPreceding(img.date)
	if !ok {
		i = 0
	}

	for ; i+1 < len(img.preds); i += 1 {
		x1 := img.timeToX(img.preds[i].T())
		y1 := tideHeightToY(img.preds[i].Height)
		if x1 > width {
			break
		}
		io(fmt.Fprintf(w, `<path class="tide" fill="skyblue" d="M %d,%d `, x1, y1))

		x2 := img.timeToX(img.preds[i+1].T()) + 1 // +1 to create overlap
		y2 := tideHeightToY(img.preds[i+1].Height)

		// Horizontal control points at the midpoint approximate the eased
		// cosine the engine interpolates with.
		cx1, cy1 := (x1+x2)/2, y1
		cx2, cy2 := cx1, y2

		io(fmt.Fprintf(w, `C %d,%d %d,%d %d,%d `,
			cx1, cy1,
			cx2, cy2,
			x2, y2))

		io(fmt.Fprintf(w, `L %d,%d L %d,%d z"/>`, x2, height, x1, height))
	}

	// Insert date of this graph as unix.
	io(fmt.Fprintf(w, `<text class="unixtime" visibility="hidden">%d</text>`, img.date.Unix()))

	io(fmt.Fprintf(w, `</svg>`))

	return n, err
}

func (img *Tidal) indexPredPreceding(t time.Time) (int, bool) {
	left, right := 0, len(img.preds)
	for right-left > 1 {
		mid := (left + right) / 2
		midt := img.preds[mid].T()
		if midt.Before(t) {
			left = mid
		} else if midt.After(t) {
			right = mid
		} else if midt.Equal(t) {
			return mid, true
		}
	}
	ok := left < len(img.preds)
	return left, ok
}

func tideHeightToY(h niwa.Height) int {
	return height - int((float64(h)+0.5)*(height/metersOfRange))
}

func (img *Tidal) timeToX(t time.Time) int {
	return int(t.Unix()-img.date.Unix()) * width / (60 * 60 * 24)
}

func clamp(x int) int {
	if x < 0 {
		return 0
	}
	if x > width {
		return width
	}
	return x
}
