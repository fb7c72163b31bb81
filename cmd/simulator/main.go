// simulator 模拟若干 Oria WA150KM 温度计：按随机游走生成温度，
// 编码为 codes 行后通过 TCP 推送给网关；可按比例注入突变/损坏帧。
package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"math/rand/v2"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	cfgpkg "github.com/taoyao-code/rf-gateway/internal/config"
	"github.com/taoyao-code/rf-gateway/internal/coremodel"
	"github.com/taoyao-code/rf-gateway/internal/logging"
	"github.com/taoyao-code/rf-gateway/internal/protocol/oria"
)

type config struct {
	addr     string
	devices  int
	interval time.Duration
	count    int
	glitch   float64
	seed     uint64
	stdout   bool
}

func main() {
	var cfg config
	pflag.StringVarP(&cfg.addr, "addr", "a", "127.0.0.1:1433", "gateway TCP ingest address")
	pflag.IntVarP(&cfg.devices, "devices", "n", 4, "number of simulated thermometers")
	pflag.DurationVarP(&cfg.interval, "interval", "i", time.Second, "delay between transmissions")
	pflag.IntVar(&cfg.count, "count", 0, "stop after this many transmissions (0 = forever)")
	pflag.Float64Var(&cfg.glitch, "glitch", 0.05, "probability of a corrupted or implausible frame")
	pflag.Uint64Var(&cfg.seed, "seed", uint64(time.Now().UnixNano()), "random seed")
	pflag.BoolVar(&cfg.stdout, "stdout", false, "write codes lines to stdout instead of TCP")
	pflag.Parse()

	logger := logging.NewWriterLogger(cfgpkg.LoggingConfig{Level: "info", Format: "console"}, os.Stderr)
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var w io.Writer = os.Stdout
	if !cfg.stdout {
		conn, err := net.Dial("tcp", cfg.addr)
		if err != nil {
			logger.Fatal("dial gateway failed", zap.String("addr", cfg.addr), zap.Error(err))
		}
		defer conn.Close()
		w = conn
		logger.Info("connected to gateway", zap.String("addr", cfg.addr))
	}

	sim := newSimulator(cfg.devices, cfg.glitch, rand.New(rand.NewPCG(cfg.seed, cfg.seed^0x9e3779b97f4a7c15)))
	if err := stream(ctx, w, sim, cfg.interval, cfg.count, logger); err != nil && ctx.Err() == nil {
		logger.Fatal("stream failed", zap.Error(err))
	}
}

// thermometer 单个模拟设备
type thermometer struct {
	id      uint8
	channel uint8
	temp    coremodel.Tenths
	toggle  bool
}

type simulator struct {
	devices []*thermometer
	glitch  float64
	rng     *rand.Rand
	next    int
}

func newSimulator(n int, glitch float64, rng *rand.Rand) *simulator {
	if n <= 0 {
		n = 1
	}
	s := &simulator{glitch: glitch, rng: rng}
	for i := 0; i < n; i++ {
		s.devices = append(s.devices, &thermometer{
			id:      uint8(rng.IntN(254) + 1),
			channel: uint8(i%16 + 1),
			// 一半冷藏一半冷冻
			temp: coremodel.Tenths(40 - (i%2)*220 + rng.IntN(21) - 10),
		})
	}
	return s
}

// Next 轮流生成下一台设备的 codes 行，glitch 为是否注入了异常
func (s *simulator) Next() (line string, glitch bool, err error) {
	d := s.devices[s.next%len(s.devices)]
	s.next++

	// ±0.3 °C 随机游走，限制在量程内
	d.temp += coremodel.Tenths(s.rng.IntN(7) - 3)
	d.temp = max(-400, min(600, d.temp))

	msgType := oria.DefaultMsgType
	if d.toggle {
		msgType = 0xfa28
	}
	d.toggle = !d.toggle

	temp := d.temp
	glitch = s.rng.Float64() < s.glitch
	jump := glitch && s.rng.IntN(2) == 0
	if jump {
		// 合法帧但温度跳变 20 °C，由突变抑制拒绝；向量程中心方向跳，避免被截断
		if temp > 100 {
			temp -= 200
		} else {
			temp += 200
		}
	}
	f, err := oria.BuildFrame(d.id, d.channel, temp, msgType)
	if err != nil {
		return "", false, err
	}
	if glitch && !jump {
		// 破坏 BCD 个位，由合理性校验拒绝
		f[8] = f[8]&0xF0 | 0x0C
	}
	return oria.EncodeCodes(f), glitch, nil
}

func stream(ctx context.Context, w io.Writer, sim *simulator, interval time.Duration, count int, logger *zap.Logger) error {
	bw := bufio.NewWriter(w)
	limiter := rate.NewLimiter(rate.Every(max(interval, time.Millisecond)), 1)
	for sent := 0; count == 0 || sent < count; sent++ {
		if err := limiter.Wait(ctx); err != nil {
			return err
		}
		line, glitch, err := sim.Next()
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintln(bw, line); err != nil {
			return err
		}
		if err := bw.Flush(); err != nil {
			return err
		}
		logger.Debug("transmitted", zap.Int("seq", sent), zap.Bool("glitch", glitch))
	}
	logger.Info("simulation finished", zap.Int("sent", count))
	return nil
}
