// oria-decode 从标准输入或文件读取 rtl_433 codes 行（每行一组比特行），
// 解码 Oria WA150KM 帧并输出 CSV 或 JSON 行。
//
//	rtl_433 -R 0 -X 'n=oria,m=OOK_PCM,s=490,l=490,r=2000' -F json | jq -r .codes | oria-decode
package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/taoyao-code/rf-gateway/internal/bitbuffer"
	cfgpkg "github.com/taoyao-code/rf-gateway/internal/config"
	"github.com/taoyao-code/rf-gateway/internal/logging"
	"github.com/taoyao-code/rf-gateway/internal/protocol/oria"
	"github.com/taoyao-code/rf-gateway/internal/sink"
)

type options struct {
	format     string
	verbose    bool
	maxDevices int
	maxDelta   float64
}

func main() {
	var opts options
	pflag.StringVarP(&opts.format, "format", "f", "csv", "output format: csv|json")
	pflag.BoolVarP(&opts.verbose, "verbose", "v", false, "log rejected frames to stderr")
	pflag.IntVar(&opts.maxDevices, "max-devices", oria.DefaultMaxDevices, "device state table capacity")
	pflag.Float64Var(&opts.maxDelta, "max-delta", oria.DefaultMaxDelta.Celsius(), "max temperature change between readings (°C)")
	pflag.Parse()

	in := io.Reader(os.Stdin)
	if name := pflag.Arg(0); name != "" && name != "-" {
		f, err := os.Open(name)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		defer f.Close()
		in = f
	}

	stats, err := run(in, os.Stdout, os.Stderr, opts)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if opts.verbose {
		fmt.Fprintf(os.Stderr, "lines=%d accepted=%d rejected=%d parse_errors=%d\n",
			stats.lines, stats.accepted, stats.rejected, stats.parseErrors)
	}
}

type runStats struct {
	lines, accepted, rejected, parseErrors int
}

func run(in io.Reader, out, errOut io.Writer, opts options) (runStats, error) {
	var st runStats

	var w sink.Sink
	switch opts.format {
	case "csv":
		w = sink.NewCSVSink(out, oria.FieldNames())
	case "json":
		w = sink.NewJSONSink(out)
	default:
		return st, fmt.Errorf("unknown format %q", opts.format)
	}

	logger := zap.NewNop()
	if opts.verbose {
		logger = logging.NewWriterLogger(cfgpkg.LoggingConfig{Level: "debug", Format: "console"}, errOut)
	}
	dec := oria.NewDecoder(logger, oria.Options{MaxDevices: opts.maxDevices, MaxTempDelta: opts.maxDelta})

	sc := bufio.NewScanner(in)
	sc.Buffer(make([]byte, 0, 4096), 1<<20)
	ctx := context.Background()
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		st.lines++
		bb, err := bitbuffer.Parse(line)
		if err != nil {
			st.parseErrors++
			logger.Warn("bad codes line", zap.Int("line", st.lines), zap.Error(err))
			continue
		}
		outcome := dec.Decode(bb)
		if !outcome.Accepted() {
			st.rejected++
			continue
		}
		st.accepted++
		if err := w.Emit(ctx, *outcome.Reading); err != nil {
			return st, fmt.Errorf("write output: %w", err)
		}
	}
	return st, sc.Err()
}
