package capture

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"time"

	"snapbox/internal/logging"
)

// ffmpeg names for the fourccs the V4L2 backend can stream.
var ffmpegPixFmt = map[PixelFormat]string{
	FormatRGB3: "rgb24",
}

// V4L2Camera streams raw frames from a V4L2 device through ffmpeg.
type V4L2Camera struct {
	device string
	cfg    StreamConfig
	log    logging.Component

	cmd    *exec.Cmd
	stdout io.ReadCloser
	buf    []byte
}

// OpenV4L2 opens device. It checks that the device node exists and that ffmpeg and
// v4l2-ctl are installed; the stream itself is started by Start.
func OpenV4L2(device string) (Camera, error) {
	if _, err := os.Stat(device); err != nil {
		return nil, err
	}
	for _, tool := range []string{"ffmpeg", "v4l2-ctl"} {
		if _, err := exec.LookPath(tool); err != nil {
			return nil, fmt.Errorf("%s not found: %w", tool, err)
		}
	}
	return &V4L2Camera{device: device, log: logging.For("v4l2")}, nil
}

// Resolutions runs v4l2-ctl --list-formats-ext and returns the sizes listed for format.
func (c *V4L2Camera) Resolutions(format PixelFormat) (ResolutionInfo, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	out, err := exec.CommandContext(ctx, "v4l2-ctl", "--device", c.device, "--list-formats-ext").Output()
	if err != nil {
		return ResolutionInfo{}, fmt.Errorf("list formats: %w", err)
	}
	return parseFormats(string(out), format), nil
}

var (
	formatLine   = regexp.MustCompile(`^\s*\[\d+\]:\s*'(\w+)'`)
	discreteLine = regexp.MustCompile(`^\s*Size:\s*Discrete\s+(\d+)x(\d+)`)
	stepwiseLine = regexp.MustCompile(`^\s*Size:\s*(?:Stepwise|Continuous)\s+(\d+)x(\d+)\s*-\s*(\d+)x(\d+)`)
)

// parseFormats extracts the sizes listed under format in v4l2-ctl --list-formats-ext output.
func parseFormats(output string, format PixelFormat) ResolutionInfo {
	var info ResolutionInfo
	inFormat := false

	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		line := scanner.Text()

		if m := formatLine.FindStringSubmatch(line); m != nil {
			inFormat = PixelFormat(m[1]) == format
			continue
		}
		if !inFormat {
			continue
		}

		if m := stepwiseLine.FindStringSubmatch(line); m != nil {
			info.Stepwise = &Stepwise{
				Min: Resolution{Width: atoi(m[1]), Height: atoi(m[2])},
				Max: Resolution{Width: atoi(m[3]), Height: atoi(m[4])},
			}
			continue
		}
		if m := discreteLine.FindStringSubmatch(line); m != nil {
			info.Discrete = append(info.Discrete, Resolution{Width: atoi(m[1]), Height: atoi(m[2])})
		}
	}

	return info
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

// Start launches ffmpeg writing raw frames of cfg's size and format to a pipe.
func (c *V4L2Camera) Start(cfg StreamConfig) error {
	pixFmt, ok := ffmpegPixFmt[cfg.Format]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, cfg.Format)
	}
	c.cfg = cfg
	c.buf = make([]byte, cfg.Width*cfg.Height*3)

	fps := strconv.FormatFloat(float64(time.Second)/float64(cfg.Interval), 'f', -1, 64)
	cmd := exec.Command("ffmpeg",
		"-hide_banner",
		"-loglevel", "error",
		"-f", "v4l2",
		"-input_format", pixFmt,
		"-framerate", fps,
		"-video_size", cfg.Resolution.String(),
		"-i", c.device,
		"-f", "rawvideo",
		"-pix_fmt", pixFmt,
		"-",
	)
	cmd.Stderr = &stderrLogger{log: c.log}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("ffmpeg stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start ffmpeg: %w", err)
	}

	c.cmd = cmd
	c.stdout = stdout
	c.log.Debug("ffmpeg started (pid %d) for %s", cmd.Process.Pid, c.device)
	return nil
}

// Capture reads the next frame. After a read error the ffmpeg process is stopped and
// the next call restarts it.
func (c *V4L2Camera) Capture() (Frame, error) {
	if c.cmd == nil {
		if c.buf == nil {
			return Frame{}, errors.New("stream not started")
		}
		if err := c.Start(c.cfg); err != nil {
			return Frame{}, err
		}
	}

	if _, err := io.ReadFull(c.stdout, c.buf); err != nil {
		c.stop()
		return Frame{}, fmt.Errorf("read frame: %w", err)
	}

	data := make([]byte, len(c.buf))
	copy(data, c.buf)
	return Frame{Data: data, Width: c.cfg.Width, Height: c.cfg.Height, Format: c.cfg.Format}, nil
}

func (c *V4L2Camera) stop() {
	if c.cmd == nil {
		return
	}
	if c.cmd.Process != nil {
		_ = c.cmd.Process.Kill()
	}
	_ = c.cmd.Wait()
	c.cmd = nil
	c.stdout = nil
}

// Close stops ffmpeg.
func (c *V4L2Camera) Close() error {
	c.stop()
	return nil
}

// stderrLogger forwards ffmpeg's stderr to the log one line at a time.
type stderrLogger struct {
	log logging.Component
	buf bytes.Buffer
}

func (s *stderrLogger) Write(p []byte) (int, error) {
	s.buf.Write(p)
	for {
		line, err := s.buf.ReadString('\n')
		if err != nil {
			// keep the partial line for the next write
			s.buf.WriteString(line)
			break
		}
		if line = strings.TrimSpace(line); line != "" {
			s.log.Warn("ffmpeg: %s", line)
		}
	}
	return len(p), nil
}
