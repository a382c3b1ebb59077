// Package printing はヘッドレスブラウザで画面を PDF に出力します。
package printing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/rs/zerolog/log"
)

// DefaultTimeout はページ読み込みから PDF 生成までの既定の制限時間です。
const DefaultTimeout = 30 * time.Second

// Options は PDF 出力の設定です。
type Options struct {
	// Headless が false ならブラウザ画面を表示します（動作確認用）。
	Headless bool
	// BrowserPath は Chromium 系ブラウザの実行ファイルです。空なら自動検出します。
	BrowserPath string
	Timeout     time.Duration
	Landscape   bool
}

// DefaultOptions はヘッドレス・縦向き・30秒の設定を返します。
func DefaultOptions() Options {
	return Options{Headless: true, Timeout: DefaultTimeout}
}

func (o Options) withDefaults() Options {
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	return o
}

// PrintPage は url を開き、読み込み完了後のページを outPath に PDF で保存します。
func PrintPage(ctx context.Context, url, outPath string, opts Options) error {
	if url == "" {
		return errors.New("url is required")
	}
	if outPath == "" {
		return errors.New("output path is required")
	}
	opts = opts.withDefaults()

	if dir := filepath.Dir(outPath); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output folder: %w", err)
		}
	}

	// Leakless(false) はセキュリティソフトによる誤検知対策
	l := launcher.New().
		Headless(opts.Headless).
		Leakless(false)
	if opts.BrowserPath != "" {
		l = l.Bin(opts.BrowserPath)
	}
	controlURL, err := l.Context(ctx).Launch()
	if err != nil {
		return fmt.Errorf("failed to launch browser: %w", err)
	}
	defer l.Kill()

	browser := rod.New().ControlURL(controlURL).Context(ctx)
	if err := browser.Connect(); err != nil {
		return fmt.Errorf("failed to connect to browser: %w", err)
	}
	defer browser.Close()

	log.Info().Str("url", url).Msg("Rendering page to PDF")
	page, err := browser.Timeout(opts.Timeout).Page(proto.TargetCreateTarget{URL: url})
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", url, err)
	}
	if err := page.WaitLoad(); err != nil {
		return fmt.Errorf("page did not finish loading: %w", err)
	}

	stream, err := page.PDF(&proto.PagePrintToPDF{
		Landscape:       opts.Landscape,
		PrintBackground: true,
	})
	if err != nil {
		return fmt.Errorf("failed to print pdf: %w", err)
	}
	data, err := io.ReadAll(stream)
	if err != nil {
		return fmt.Errorf("failed to read pdf stream: %w", err)
	}
	if len(data) == 0 {
		return errors.New("pdf is empty")
	}

	if err := os.WriteFile(outPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", outPath, err)
	}
	log.Info().Str("path", outPath).Int("bytes", len(data)).Msg("PDF saved")
	return nil
}
