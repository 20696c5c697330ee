package internal

import (
	"fmt"
	"os"
	"time"

	"github.com/schollz/progressbar/v3"
	"golang.org/x/term"
)

// NewReadBar returns a progress bar for reading n local files totalling maxBytes bytes before they are archived.
//
// The bar is drawn on stderr only if stderr is a terminal, and is cleared once every byte has been read so that the
// summary logged afterwards starts on a clean line.
func NewReadBar(maxBytes int64, n int, options ...progressbar.Option) *progressbar.ProgressBar {
	return progressbar.NewOptions64(maxBytes,
		append([]progressbar.Option{
			progressbar.OptionSetDescription(fmt.Sprintf("reading %d files", n)),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionSetVisibility(term.IsTerminal(int(os.Stderr.Fd()))),
			progressbar.OptionShowBytes(true),
			progressbar.OptionUseIECUnits(true),
			progressbar.OptionSetWidth(20),
			progressbar.OptionThrottle(250 * time.Millisecond),
			progressbar.OptionSetPredictTime(false),
			progressbar.OptionClearOnFinish()},
			options...)...)
}
