package ffmpeg

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/mgpai22/autosub/internal/cache"
	"github.com/mgpai22/autosub/internal/logging"
)

const (
	ffmpegReleaseVersion = "6.1"
	ffmpegReleaseBaseURL = "https://github.com/ffbinaries/ffbinaries-prebuilt/releases/download"
)

// ErrNotFound is returned when neither the environment, PATH nor the
// bundle cache can provide ffmpeg and ffprobe.
var ErrNotFound = errors.New("ffmpeg binaries not found")

type BinaryPaths struct {
	FFmpeg  string
	FFprobe string
}

// LookupOptions tunes binary resolution.
type LookupOptions struct {
	// AllowDownload fetches the prebuilt bundle into the cache when the
	// binaries are not installed.
	AllowDownload bool
	Client        *http.Client
	Logger        *logging.Logger
}

// Locate resolves ffmpeg and ffprobe from AUTOSUB_FFMPEG_PATH and
// AUTOSUB_FFPROBE_PATH, then PATH, then the bundle cache.
func Locate(ctx context.Context, opts LookupOptions) (BinaryPaths, error) {
	log := opts.Logger
	if log == nil {
		log = logging.Nop()
	}

	ffmpegPath := os.Getenv("AUTOSUB_FFMPEG_PATH")
	ffprobePath := os.Getenv("AUTOSUB_FFPROBE_PATH")

	if ffmpegPath == "" {
		if found, err := exec.LookPath("ffmpeg"); err == nil {
			ffmpegPath = found
		}
	}
	if ffprobePath == "" {
		if found, err := exec.LookPath("ffprobe"); err == nil {
			ffprobePath = found
		}
	}
	if ffmpegPath != "" && ffprobePath != "" {
		return BinaryPaths{FFmpeg: ffmpegPath, FFprobe: ffprobePath}, nil
	}

	installDir, err := cache.Dir(
		"ffmpeg",
		ffmpegReleaseVersion,
		runtime.GOOS,
		runtime.GOARCH,
	)
	if err != nil {
		return BinaryPaths{}, err
	}
	bundled := BinaryPaths{
		FFmpeg:  filepath.Join(installDir, "ffmpeg"+executableSuffix()),
		FFprobe: filepath.Join(installDir, "ffprobe"+executableSuffix()),
	}
	if binariesExist(bundled) {
		return bundled, nil
	}

	if !opts.AllowDownload {
		return BinaryPaths{}, fmt.Errorf(
			"%w: install ffmpeg or set AUTOSUB_FFMPEG_PATH and AUTOSUB_FFPROBE_PATH",
			ErrNotFound,
		)
	}

	assetName, err := assetForPlatform(runtime.GOOS, runtime.GOARCH)
	if err != nil {
		return BinaryPaths{}, err
	}

	archivePath := filepath.Join(installDir, assetName)
	url := fmt.Sprintf("%s/v%s/%s", ffmpegReleaseBaseURL, ffmpegReleaseVersion, assetName)
	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Minute}
	}
	if err := cache.Fetch(ctx, client, url, archivePath, log); err != nil {
		return BinaryPaths{}, fmt.Errorf("download ffmpeg bundle: %w", err)
	}
	defer func() { _ = os.Remove(archivePath) }()

	if err := extractArchive(archivePath, bundled); err != nil {
		return BinaryPaths{}, fmt.Errorf("extract %s: %w", assetName, err)
	}
	if !binariesExist(bundled) {
		return BinaryPaths{}, fmt.Errorf("%w after extraction", ErrNotFound)
	}

	if runtime.GOOS != "windows" {
		if err := os.Chmod(bundled.FFmpeg, 0o755); err != nil {
			return BinaryPaths{}, fmt.Errorf("chmod ffmpeg: %w", err)
		}
		if err := os.Chmod(bundled.FFprobe, 0o755); err != nil {
			return BinaryPaths{}, fmt.Errorf("chmod ffprobe: %w", err)
		}
	}

	return bundled, nil
}

func assetForPlatform(goos, goarch string) (string, error) {
	switch {
	case goos == "linux" && goarch == "amd64":
		return "ffmpeg-" + ffmpegReleaseVersion + "-linux-64.zip", nil
	case goos == "linux" && goarch == "arm64":
		return "ffmpeg-" + ffmpegReleaseVersion + "-linux-arm-64.zip", nil
	case goos == "darwin" && goarch == "amd64":
		return "ffmpeg-" + ffmpegReleaseVersion + "-macos-64.zip", nil
	case goos == "windows" && goarch == "amd64":
		return "ffmpeg-" + ffmpegReleaseVersion + "-win-64.zip", nil
	default:
		return "", fmt.Errorf("unsupported platform for bundled ffmpeg: %s/%s", goos, goarch)
	}
}

func extractArchive(archivePath string, dest BinaryPaths) error {
	zipReader, err := zip.OpenReader(archivePath)
	if err != nil {
		return fmt.Errorf("open ffmpeg archive: %w", err)
	}
	defer func() { _ = zipReader.Close() }()

	ffmpegFound := false
	ffprobeFound := false
	for _, file := range zipReader.File {
		switch strings.ToLower(filepath.Base(file.Name)) {
		case "ffmpeg", "ffmpeg.exe":
			if err := extractZipFile(file, dest.FFmpeg); err != nil {
				return err
			}
			ffmpegFound = true
		case "ffprobe", "ffprobe.exe":
			if err := extractZipFile(file, dest.FFprobe); err != nil {
				return err
			}
			ffprobeFound = true
		}
	}

	if !ffmpegFound || !ffprobeFound {
		return fmt.Errorf("ffmpeg archive missing required binaries")
	}
	return nil
}

func extractZipFile(file *zip.File, dest string) error {
	reader, err := file.Open()
	if err != nil {
		return fmt.Errorf("open ffmpeg archive entry: %w", err)
	}
	defer func() { _ = reader.Close() }()

	out, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("create ffmpeg binary: %w", err)
	}

	if _, err := io.Copy(out, reader); err != nil {
		_ = out.Close()
		return fmt.Errorf("write ffmpeg binary: %w", err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("close ffmpeg binary: %w", err)
	}
	return nil
}

func binariesExist(paths BinaryPaths) bool {
	return fileExists(paths.FFmpeg) && fileExists(paths.FFprobe)
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir() && info.Size() > 0
}

func executableSuffix() string {
	if runtime.GOOS == "windows" {
		return ".exe"
	}
	return ""
}
