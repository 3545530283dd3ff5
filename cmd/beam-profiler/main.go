package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"

	beamprofiler "github.com/menta2k/beam-profiler"
	"github.com/menta2k/beam-profiler/internal/config"
	"github.com/menta2k/beam-profiler/internal/utils"
)

func main() {
	var configPath, saveConfig string
	var showVersion bool

	cfg := config.Default()

	flag.StringVar(&configPath, "config", "", "JSON config file (default "+config.GetConfigPath()+" when present)")
	flag.StringVar(&saveConfig, "save-config", "", "write the effective config to this path and exit")
	flag.BoolVar(&showVersion, "version", false, "print version and exit")

	// Values set here only override the config file when given explicitly.
	var (
		dir       = flag.String("dir", cfg.Input.Dir, "directory holding the images; scanned when no files are given")
		pixelSize = flag.Float64("pixel", cfg.Input.PixelSize, "camera pixel size in µm")
		waist     = flag.Float64("waist", cfg.Fit.InitialWaist, "initial waist guess in µm")
		maxfev    = flag.Int("maxfev", cfg.Fit.MaxEvaluations, "maximum model evaluations per fit")
		crop      = flag.Int("crop", cfg.Crop.HalfSize, "half size of the fitting window around the peak in pixels, 0 keeps the full frame")
		outDir    = flag.String("out", cfg.Output.Dir, "output directory")
		prefix    = flag.String("prefix", cfg.Output.Prefix, "output file name prefix")
		suffix    = flag.String("suffix", cfg.Output.Suffix, "output file name suffix")
		png       = flag.Bool("png", cfg.Output.PNG, "write the contour figure")
		html      = flag.Bool("html", cfg.Output.HTML, "write an interactive page with profile cuts")
		jsonOut   = flag.Bool("json", cfg.Output.JSON, "write a JSON report")
		levels    = flag.Int("levels", cfg.Output.ContourLevels, "number of contour levels")
		dpi       = flag.Int("dpi", cfg.Output.DPI, "figure resolution")
		workers   = flag.Int("workers", cfg.Output.Workers, "files processed in parallel")
	)

	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] [image|URL ...]\n", filepath.Base(os.Args[0]))
		flag.PrintDefaults()
	}
	flag.Parse()

	if showVersion {
		fmt.Println(beamprofiler.GetVersion())
		return
	}

	if configPath == "" && utils.FileExists(config.GetConfigPath()) {
		configPath = config.GetConfigPath()
	}
	if configPath != "" {
		loaded, err := config.LoadFromFile(configPath)
		if err != nil {
			log.Fatal(err)
		}
		cfg = loaded
		log.Printf("loaded config %s", configPath)
	}

	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "dir":
			cfg.Input.Dir = *dir
		case "pixel":
			cfg.Input.PixelSize = *pixelSize
		case "waist":
			cfg.Fit.InitialWaist = *waist
		case "maxfev":
			cfg.Fit.MaxEvaluations = *maxfev
		case "crop":
			cfg.Crop.HalfSize = *crop
		case "out":
			cfg.Output.Dir = *outDir
		case "prefix":
			cfg.Output.Prefix = *prefix
		case "suffix":
			cfg.Output.Suffix = *suffix
		case "png":
			cfg.Output.PNG = *png
		case "html":
			cfg.Output.HTML = *html
		case "json":
			cfg.Output.JSON = *jsonOut
		case "levels":
			cfg.Output.ContourLevels = *levels
		case "dpi":
			cfg.Output.DPI = *dpi
		case "workers":
			cfg.Output.Workers = *workers
		}
	})
	if args := flag.Args(); len(args) > 0 {
		cfg.Input.Files = args
	}

	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	if saveConfig != "" {
		if err := cfg.SaveToFile(saveConfig); err != nil {
			log.Fatal(err)
		}
		log.Printf("wrote %s", saveConfig)
		return
	}

	sources := cfg.Sources()
	if len(sources) == 0 {
		if !utils.DirExists(cfg.Input.Dir) {
			log.Fatalf("input directory %s does not exist", cfg.Input.Dir)
		}
		files, err := utils.ListImageFiles(cfg.Input.Dir)
		if err != nil {
			log.Fatalf("failed to list %s: %v", cfg.Input.Dir, err)
		}
		sources = files
	}
	if len(sources) == 0 {
		flag.Usage()
		log.Fatalf("no images found in %s", cfg.Input.Dir)
	}

	if err := utils.EnsureDir(cfg.Output.Dir); err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	profiler := beamprofiler.NewWithOptions(options(cfg))
	log.Printf("run %s: %d image(s), pixel size %g µm", profiler.RunID(), len(sources), cfg.Input.PixelSize)

	results := profiler.ProcessFiles(ctx, sources)
	for _, res := range results {
		if res.Err != nil {
			continue
		}
		fmt.Printf("%s\t%s\n", res.Source, res.Report.Title)
	}

	if failed := beamprofiler.Failed(results); len(failed) > 0 {
		for _, res := range failed {
			log.Printf("FAILED %s: %v", res.Source, res.Err)
		}
		stop()
		os.Exit(1)
	}
}

// options maps the file configuration onto library options
func options(cfg *config.Config) beamprofiler.Options {
	opts := beamprofiler.DefaultOptions()
	opts.PixelSize = cfg.Input.PixelSize
	opts.InitialWaist = cfg.Fit.InitialWaist
	opts.Fit.MaxEvaluations = cfg.Fit.MaxEvaluations
	opts.Fit.FTol = cfg.Fit.FTol
	opts.Fit.XTol = cfg.Fit.XTol
	opts.Crop.HalfSize = cfg.Crop.HalfSize
	opts.Crop.MinSignalFraction = cfg.Crop.MinSignalFraction
	opts.Render.Levels = cfg.Output.ContourLevels
	opts.Render.DPI = cfg.Output.DPI
	opts.OutputDir = cfg.Output.Dir
	opts.Prefix = cfg.Output.Prefix
	opts.Suffix = cfg.Output.Suffix
	opts.PNG = cfg.Output.PNG
	opts.HTML = cfg.Output.HTML
	opts.JSON = cfg.Output.JSON
	opts.Workers = cfg.Output.Workers
	opts.Logf = log.Printf
	return opts
}
