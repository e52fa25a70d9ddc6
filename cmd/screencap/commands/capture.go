package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/bryanchriswhite/screencap/internal/capture"
	"github.com/bryanchriswhite/screencap/internal/config"
	"github.com/bryanchriswhite/screencap/internal/output"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// Windows smaller than this in either dimension are skipped by bulk capture.
const minBulkWindowSize = 50

var captureCmd = &cobra.Command{
	Use:   "capture",
	Short: "Capture monitors, regions or windows to image files",
	Long: `Capture monitors, desktop regions or windows and write them to the
output directory (see --output-dir and the output_dir config key).`,
}

var captureMonitorCmd = &cobra.Command{
	Use:   "monitor [HANDLE]",
	Short: "Capture one monitor, or every monitor with --all",
	Example: `  # Capture every monitor in parallel
  screencap capture monitor --all

  # Capture one monitor by handle (see 'screencap list monitors')
  screencap capture monitor 0x10001`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCaptureMonitor,
}

var captureRegionCmd = &cobra.Command{
	Use:   "region",
	Short: "Capture a rectangle of the desktop",
	Example: `  # Capture 800x600 starting at the desktop origin
  screencap capture region --width 800 --height 600

  # Capture a region of a specific monitor as JPEG
  screencap capture region --monitor 0x10001 --x 100 --y 100 --width 640 --height 480 --image-format jpeg`,
	Args: cobra.NoArgs,
	RunE: runCaptureRegion,
}

var captureWindowCmd = &cobra.Command{
	Use:   "window HANDLE",
	Short: "Capture one window",
	Example: `  # Capture a window by handle (see 'screencap list windows')
  screencap capture window 0x3a00007`,
	Args: cobra.ExactArgs(1),
	RunE: runCaptureWindow,
}

var captureWindowsCmd = &cobra.Command{
	Use:   "windows",
	Short: "Capture every visible window",
	Long: `Capture every capturable window to its own file. Minimized windows and
windows smaller than 50x50 are skipped.`,
	Args: cobra.NoArgs,
	RunE: runCaptureWindows,
}

var (
	captureAll       bool
	regionMonitor    string
	regionX, regionY int
	regionW, regionH int
)

func init() {
	rootCmd.AddCommand(captureCmd)
	captureCmd.AddCommand(captureMonitorCmd)
	captureCmd.AddCommand(captureRegionCmd)
	captureCmd.AddCommand(captureWindowCmd)
	captureCmd.AddCommand(captureWindowsCmd)

	captureMonitorCmd.Flags().BoolVarP(&captureAll, "all", "a", false, "capture every monitor")

	captureRegionCmd.Flags().StringVar(&regionMonitor, "monitor", "", "monitor handle the region must belong to (default: whole desktop)")
	captureRegionCmd.Flags().IntVar(&regionX, "x", 0, "left edge in desktop coordinates")
	captureRegionCmd.Flags().IntVar(&regionY, "y", 0, "top edge in desktop coordinates")
	captureRegionCmd.Flags().IntVar(&regionW, "width", 0, "region width in pixels")
	captureRegionCmd.Flags().IntVar(&regionH, "height", 0, "region height in pixels")
	captureRegionCmd.MarkFlagRequired("width")
	captureRegionCmd.MarkFlagRequired("height")
}

// session bundles what every capture command needs.
type session struct {
	cfg    *config.Config
	engine *capture.Engine
	enc    output.Encoder
}

func openSession() (*session, error) {
	configMgr, err := loadConfig()
	if err != nil {
		return nil, err
	}
	cfg := configMgr.Get()
	format, err := output.ParseFormat(cfg.ImageFormat)
	if err != nil {
		return nil, err
	}
	engine, err := openEngine(cfg)
	if err != nil {
		return nil, err
	}
	return &session{cfg: cfg, engine: engine, enc: output.NewEncoder(format, cfg.JPEGQuality)}, nil
}

// save converts buf, releases it and writes the image to dir/name.
func save(buf *capture.CaptureBuffer, enc output.Encoder, dir, name string) (string, error) {
	img, err := buf.RGBA()
	buf.Release()
	if err != nil {
		return "", err
	}
	return enc.WriteFile(dir, name, img)
}

func runCaptureMonitor(cmd *cobra.Command, args []string) error {
	if captureAll == (len(args) == 1) {
		return errors.New("give either a monitor handle or --all")
	}
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.engine.Close()

	if captureAll {
		n, err := captureAllMonitors(cmd.Context(), s.engine, s.enc, s.cfg.OutputDir, os.Stdout)
		fmt.Printf("\nCaptured %d monitor(s) to %s/\n", n, s.cfg.OutputDir)
		return err
	}

	h, err := capture.ParseHandle(args[0])
	if err != nil {
		return err
	}
	m, err := s.engine.Monitor(h)
	if err != nil {
		return err
	}
	buf, err := s.engine.CaptureMonitor(h)
	if err != nil {
		return err
	}
	path, err := save(buf, s.enc, s.cfg.OutputDir, output.Filename("monitor", 1, s.enc.Format, m.Name))
	if err != nil {
		return err
	}
	fmt.Println(path)
	return nil
}

// captureAllMonitors captures every monitor concurrently, one engine call
// per goroutine. It returns how many images were written and the first
// failure.
func captureAllMonitors(ctx context.Context, engine *capture.Engine, enc output.Encoder, dir string, out io.Writer) (int, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	monitors, err := engine.ListMonitors()
	if err != nil {
		return 0, fmt.Errorf("failed to list monitors: %w", err)
	}

	paths := make([]string, len(monitors))
	g, ctx := errgroup.WithContext(ctx)
	for i, m := range monitors {
		i, m := i, m
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			buf, err := engine.CaptureMonitor(m.Handle)
			if err != nil {
				return fmt.Errorf("monitor %d (%s): %w", i+1, m.Name, err)
			}
			path, err := save(buf, enc, dir, output.Filename("monitor", i+1, enc.Format, m.Name))
			if err != nil {
				return fmt.Errorf("monitor %d (%s): %w", i+1, m.Name, err)
			}
			paths[i] = path
			return nil
		})
	}
	err = g.Wait()

	n := 0
	for i, p := range paths {
		if p == "" {
			continue
		}
		fmt.Fprintf(out, "  Monitor %d: %s -> %s\n", i+1, monitors[i].Name, p)
		n++
	}
	return n, err
}

func runCaptureRegion(cmd *cobra.Command, args []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.engine.Close()

	var target capture.Handle
	if regionMonitor != "" {
		if target, err = capture.ParseHandle(regionMonitor); err != nil {
			return err
		}
	}
	buf, err := s.engine.CaptureRegion(target, regionX, regionY, regionW, regionH)
	if err != nil {
		return err
	}
	name := output.Filename("region", 1, s.enc.Format, fmt.Sprintf("%d,%d %dx%d", regionX, regionY, regionW, regionH))
	path, err := save(buf, s.enc, s.cfg.OutputDir, name)
	if err != nil {
		return err
	}
	fmt.Println(path)
	return nil
}

func runCaptureWindow(cmd *cobra.Command, args []string) error {
	h, err := capture.ParseHandle(args[0])
	if err != nil {
		return err
	}
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.engine.Close()

	buf, err := s.engine.CaptureWindow(h)
	if err != nil {
		return err
	}
	path, err := save(buf, s.enc, s.cfg.OutputDir, output.Filename("window", 1, s.enc.Format, h.String()))
	if err != nil {
		return err
	}
	fmt.Println(path)
	return nil
}

func runCaptureWindows(cmd *cobra.Command, args []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.engine.Close()

	n, err := captureAllWindows(s.engine, s.enc, s.cfg.OutputDir, s.cfg.ExcludeSelf, os.Stdout)
	if err != nil {
		return err
	}
	fmt.Printf("\nCaptured %d window(s) to %s/\n", n, s.cfg.OutputDir)
	return nil
}

// captureAllWindows captures each listed window in turn. Windows that are
// minimized, tiny or fail to capture are skipped rather than aborting the
// run.
func captureAllWindows(engine *capture.Engine, enc output.Encoder, dir string, excludeSelf bool, out io.Writer) (int, error) {
	windows, err := engine.ListWindows(excludeSelf)
	if err != nil {
		return 0, fmt.Errorf("failed to list windows: %w", err)
	}
	fmt.Fprintf(out, "Found %d window(s)\n", len(windows))

	captured := 0
	for i, w := range windows {
		if minimized, err := engine.IsWindowMinimized(w.Handle); err != nil || minimized {
			continue
		}
		if w.Bounds.Width < minBulkWindowSize || w.Bounds.Height < minBulkWindowSize {
			continue
		}

		buf, err := engine.CaptureWindow(w.Handle)
		if err != nil {
			fmt.Fprintf(out, "  Window %d: capture failed - %v\n", i+1, err)
			continue
		}
		name := output.Filename("window", i+1, enc.Format, w.AppName, truncate(w.Title, 30))
		path, err := save(buf, enc, dir, name)
		if err != nil {
			fmt.Fprintf(out, "  Window %d: save failed - %v\n", i+1, err)
			continue
		}

		focused := ""
		if ok, err := engine.IsWindowFocused(w.Handle); err == nil && ok {
			focused = " [focused]"
		}
		fmt.Fprintf(out, "  Window %d: [%s] %s%s -> %s\n", i+1, w.AppName, w.Title, focused, path)
		captured++
	}
	return captured, nil
}
