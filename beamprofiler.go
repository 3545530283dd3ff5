// Package beamprofiler measures laser beam waists from camera images.
//
// Each image is reduced to its first channel, optionally cropped around the
// brightest pixel, and fitted with the elliptical Gaussian
//
//	G(x,y) = A·exp(−2(x−x0)²/Wx² − 2(y−y0)²/Wy²) + B
//
// on a grid scaled by the camera pixel size. The waists are reported with as
// many decimals as their standard errors justify, and a figure showing the
// fitted contours over the data is written for every input.
//
// Basic usage:
//
//	opts := beamprofiler.DefaultOptions()
//	opts.PixelSize = 5.2 // µm per pixel
//	opts.OutputDir = "plots"
//
//	profiler := beamprofiler.NewWithOptions(opts)
//	for _, res := range profiler.ProcessFiles(ctx, []string{"beam1.tif", "beam2.tif"}) {
//		if res.Err != nil {
//			log.Printf("%s: %v", res.Source, res.Err)
//			continue
//		}
//		fmt.Println(res.Report.Title)
//	}
//
// The package consists of these components:
//
//  1. Frame (pkg/frame): image loading, first-channel extraction and physical grids
//  2. Cropper (pkg/cropper): region-of-interest selection around the beam
//  3. Gaussian (pkg/gaussian): the model, initial guess and Levenberg–Marquardt fit
//  4. Moments (pkg/moments): second-moment widths as a model-free cross-check
//  5. Report (pkg/report): precision-aware rounding, titles and JSON reports
//  6. Render (pkg/render): PNG figures and HTML profile cuts
package beamprofiler

import (
	"context"
	"errors"
	"fmt"
	"image"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/menta2k/beam-profiler/internal/utils"
	"github.com/menta2k/beam-profiler/pkg/cropper"
	"github.com/menta2k/beam-profiler/pkg/frame"
	"github.com/menta2k/beam-profiler/pkg/gaussian"
	"github.com/menta2k/beam-profiler/pkg/moments"
	"github.com/menta2k/beam-profiler/pkg/render"
	"github.com/menta2k/beam-profiler/pkg/report"
	"github.com/menta2k/beam-profiler/pkg/types"
)

// Version of the beam profiler library
const Version = "1.0.0"

// Options configures a Profiler
type Options struct {
	// PixelSize is the side of a square camera pixel in µm
	PixelSize float64
	// InitialWaist is the starting waist radius in µm
	InitialWaist float64
	Fit          gaussian.Options
	Crop         cropper.CropConfig
	Render       render.Options

	OutputDir string
	Prefix    string
	Suffix    string
	PNG       bool
	HTML      bool
	JSON      bool

	// Workers bounds how many files ProcessFiles handles at once
	Workers int
	// Logf receives progress messages and must be safe for concurrent use.
	// nil discards them.
	Logf func(format string, v ...any)
}

// DefaultOptions returns options for a 5.2 µm pixel camera writing PNG figures to ./output
func DefaultOptions() Options {
	return Options{
		PixelSize:    5.2,
		InitialWaist: gaussian.DefaultWaist,
		Fit:          gaussian.DefaultOptions(),
		Render:       render.DefaultOptions(),
		OutputDir:    "./output",
		Suffix:       "_fit",
		PNG:          true,
		Workers:      1,
	}
}

// Profiler fits beam images. It is safe for concurrent use.
type Profiler struct {
	opts    Options
	loader  *frame.Loader
	cropper *cropper.Cropper
	runID   string
}

// New creates a Profiler with default options
func New() *Profiler {
	return NewWithOptions(DefaultOptions())
}

// NewWithOptions creates a Profiler with custom options
func NewWithOptions(opts Options) *Profiler {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.InitialWaist <= 0 {
		opts.InitialWaist = gaussian.DefaultWaist
	}
	if opts.Logf == nil {
		opts.Logf = func(string, ...any) {}
	}
	return &Profiler{
		opts:    opts,
		loader:  frame.NewLoader(),
		cropper: cropper.NewWithConfig(opts.Crop),
		runID:   uuid.NewString(),
	}
}

// RunID identifies the reports written by this Profiler
func (p *Profiler) RunID() string {
	return p.runID
}

// Analysis is the outcome of fitting one frame
type Analysis struct {
	Frame   *frame.Frame
	Grid    *frame.Grid
	Crop    cropper.CropResult
	Fit     *types.FitResult
	Moments *types.Moments
}

// FitImage fits the first channel of img
func (p *Profiler) FitImage(ctx context.Context, img image.Image) (*Analysis, error) {
	return p.FitFrame(ctx, frame.FromImage(img))
}

// FitFrame crops f, builds its grid and fits the Gaussian model
func (p *Profiler) FitFrame(ctx context.Context, f *frame.Frame) (*Analysis, error) {
	if p.opts.PixelSize <= 0 {
		return nil, fmt.Errorf("pixel size must be positive, got %g", p.opts.PixelSize)
	}

	crop, err := p.cropper.Crop(f)
	if err != nil {
		return nil, fmt.Errorf("crop failed: %w", err)
	}
	f = crop.Frame
	g := f.Grid(p.opts.PixelSize)

	guess := gaussian.InitialGuess(f, g, p.opts.InitialWaist)
	res, err := gaussian.Fit(ctx, g.X, g.Y, f.Data, guess, p.opts.Fit)
	if err != nil {
		return nil, fmt.Errorf("gaussian fit failed: %w", err)
	}
	if !res.CovarianceOK {
		p.opts.Logf("covariance could not be estimated; waist errors unavailable")
	}

	a := &Analysis{Frame: f, Grid: g, Crop: crop, Fit: res}
	if m, err := moments.Compute(f, g, res.Params.Background()); err == nil {
		a.Moments = m
	} else {
		p.opts.Logf("second moments skipped: %v", err)
	}
	return a, nil
}

// FileResult reports what happened to one input
type FileResult struct {
	Source  string
	Report  *types.Report
	Outputs []string
	Err     error
}

// ProcessFile loads, fits and renders a single image file or URL. Outputs are
// named after the source's base name, e.g. beam.tif gives beam_fit.png.
func (p *Profiler) ProcessFile(ctx context.Context, source string) (*FileResult, error) {
	return p.processFile(ctx, source, utils.OutputStem(source))
}

func (p *Profiler) processFile(ctx context.Context, source, stem string) (*FileResult, error) {
	res := &FileResult{Source: source}

	f, err := p.loader.LoadSmart(source)
	if err != nil {
		return res, fmt.Errorf("failed to load image: %w", err)
	}

	a, err := p.FitFrame(ctx, f)
	if err != nil {
		return res, err
	}

	rep := report.Build(source, a.Frame, p.opts.PixelSize, a.Fit, a.Moments)
	rep.RunID = p.runID
	res.Report = rep
	p.opts.Logf("%s: %s (%d evaluations, reduced chi2 %.3g)", source, rep.Title, a.Fit.Evaluations, a.Fit.ReducedChiSquare)

	if err := p.writeOutputs(res, a, stem); err != nil {
		return res, err
	}
	return res, nil
}

func (p *Profiler) writeOutputs(res *FileResult, a *Analysis, stem string) error {
	name := func(suffix, format string) string {
		return utils.OutputFilename(stem, p.opts.OutputDir, p.opts.Prefix, suffix, format)
	}

	if p.opts.PNG {
		path := name(p.opts.Suffix, "png")
		if err := render.PNG(path, a.Frame, a.Grid, a.Fit.Params, res.Report.Title, p.opts.Render); err != nil {
			return fmt.Errorf("failed to render figure: %w", err)
		}
		res.Outputs = append(res.Outputs, path)
	}
	if p.opts.HTML {
		path := name("_profile", "html")
		if err := render.HTML(path, a.Frame, a.Grid, a.Fit.Params, res.Report.Title, p.opts.Render.Unit); err != nil {
			return fmt.Errorf("failed to render profile: %w", err)
		}
		res.Outputs = append(res.Outputs, path)
	}
	if p.opts.JSON {
		path := name(p.opts.Suffix, "json")
		if err := report.WriteJSON(path, res.Report); err != nil {
			return err
		}
		res.Outputs = append(res.Outputs, path)
	}
	for _, out := range res.Outputs {
		p.opts.Logf("wrote %s", out)
	}
	return nil
}

// ProcessFiles handles every source independently. A failure is recorded in
// that source's FileResult and never stops the others. Results keep the
// order of sources. Sources sharing a base name get numbered outputs
// (beam_fit.png, beam_2_fit.png) so every source keeps its own files.
func (p *Profiler) ProcessFiles(ctx context.Context, sources []string) []FileResult {
	results := make([]FileResult, len(sources))
	stems := utils.UniqueStems(sources)

	var g errgroup.Group
	g.SetLimit(p.opts.Workers)
	for i, src := range sources {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i] = FileResult{Source: src, Err: err}
				return nil
			}
			res, err := p.processFile(ctx, src, stems[i])
			res.Err = err
			if err != nil {
				p.opts.Logf("%s failed: %v", src, err)
			}
			results[i] = *res
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// Failed returns the results that carry an error
func Failed(results []FileResult) []FileResult {
	var out []FileResult
	for _, r := range results {
		if r.Err != nil {
			out = append(out, r)
		}
	}
	return out
}

// IsNotConverged reports whether err comes from a fit that ran out of evaluations
func IsNotConverged(err error) bool {
	return errors.Is(err, gaussian.ErrNotConverged)
}

// GetVersion returns the library version
func GetVersion() string {
	return Version
}
