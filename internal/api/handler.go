package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/taoyao-code/rf-gateway/internal/bitbuffer"
	"github.com/taoyao-code/rf-gateway/internal/coremodel"
	"github.com/taoyao-code/rf-gateway/internal/protocol/oria"
	"github.com/taoyao-code/rf-gateway/internal/storage/gormrepo"
	"github.com/taoyao-code/rf-gateway/internal/storage/models"
	pgstorage "github.com/taoyao-code/rf-gateway/internal/storage/pg"
	redisstorage "github.com/taoyao-code/rf-gateway/internal/storage/redis"
)

// ReadingQuerier 读数日志查询（*pgstorage.Repository）
type ReadingQuerier interface {
	ListReadings(ctx context.Context, f pgstorage.ReadingFilter) ([]coremodel.Reading, error)
	CountReadings(ctx context.Context) (int64, error)
}

// DeviceLister 设备登记表查询（*gormrepo.Repository）
type DeviceLister interface {
	ListDevices(ctx context.Context, limit int) ([]models.SensorDevice, error)
	GetDevice(ctx context.Context, model string, id, channel uint8) (*models.SensorDevice, error)
}

// LatestReader 最新读数缓存（*redisstorage.ReadingCache）
type LatestReader interface {
	ListLatest(ctx context.Context) ([]coremodel.Reading, error)
	GetLatest(ctx context.Context, k coremodel.DeviceKey) (*coremodel.Reading, error)
}

// Handler 网关 HTTP API；未启用的存储为 nil，对应接口返回 503
type Handler struct {
	decoder  *oria.Decoder
	opts     oria.Options
	readings ReadingQuerier
	devices  DeviceLister
	latest   LatestReader
	logger   *zap.Logger
}

// NewHandler 创建API处理器
func NewHandler(dec *oria.Decoder, opts oria.Options, readings ReadingQuerier, devices DeviceLister, latest LatestReader, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		decoder:  dec,
		opts:     opts,
		readings: readings,
		devices:  devices,
		latest:   latest,
		logger:   logger,
	}
}

const maxDecodeLines = 256

// DecodeRequest 调试解码请求：按顺序解码多行，共享同一个临时状态表
type DecodeRequest struct {
	Lines []string `json:"lines" binding:"required,min=1"`
}

// DecodeResult 单行解码结果
type DecodeResult struct {
	Line    string       `json:"line"`
	Error   string       `json:"error,omitempty"`
	Outcome oria.Outcome `json:"outcome"`
}

// Fields 输出字段顺序
// @Summary 输出字段顺序
// @Tags 解码器
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} StandardResponse
// @Router /api/fields [get]
func (h *Handler) Fields(c *gin.Context) {
	ok(c, gin.H{"model": oria.Model, "fields": oria.FieldNames()})
}

// Decode 使用临时解码器解码，不影响在线状态表
// @Summary 调试解码
// @Description 按顺序解码多行 codes 记法比特行，使用临时状态表
// @Tags 解码器
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param request body DecodeRequest true "比特行"
// @Success 200 {object} StandardResponse
// @Failure 400 {object} StandardResponse
// @Router /api/decode [post]
func (h *Handler) Decode(c *gin.Context) {
	var req DecodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond(c, http.StatusBadRequest, "invalid request: "+err.Error(), nil)
		return
	}
	if len(req.Lines) > maxDecodeLines {
		respond(c, http.StatusBadRequest, "too many lines", nil)
		return
	}

	scratch := oria.NewDecoder(h.logger.Named("scratch"), h.opts)
	results := make([]DecodeResult, 0, len(req.Lines))
	for _, line := range req.Lines {
		line = strings.TrimSpace(line)
		res := DecodeResult{Line: line}
		bb, err := bitbuffer.Parse(line)
		if err != nil {
			res.Error = err.Error()
			res.Outcome = oria.Outcome{Kind: oria.NoCandidate}
		} else {
			res.Outcome = scratch.Decode(bb)
		}
		results = append(results, res)
	}
	ok(c, gin.H{"results": results, "tracked": scratch.Table().Snapshot()})
}

// DecoderState 在线解码器状态表快照
// @Summary 解码器状态表
// @Tags 解码器
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} StandardResponse
// @Failure 503 {object} StandardResponse
// @Router /api/decoder/state [get]
func (h *Handler) DecoderState(c *gin.Context) {
	if h.decoder == nil {
		respond(c, http.StatusServiceUnavailable, "decoder not running", nil)
		return
	}
	t := h.decoder.Table()
	ok(c, gin.H{
		"capacity":    t.Cap(),
		"tracked":     t.Len(),
		"max_delta_C": h.decoder.MaxDelta().Celsius(),
		"entries":     t.Snapshot(),
	})
}

// ListDevices 设备列表；未启用数据库时退回状态表快照
// @Summary 查询设备列表
// @Tags 设备
// @Produce json
// @Security ApiKeyAuth
// @Param limit query int false "数量上限(默认100)"
// @Success 200 {object} StandardResponse
// @Router /api/devices [get]
func (h *Handler) ListDevices(c *gin.Context) {
	if h.devices == nil {
		h.DecoderState(c)
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	list, err := h.devices.ListDevices(c.Request.Context(), limit)
	if err != nil {
		h.logger.Error("list devices failed", zap.Error(err))
		respond(c, http.StatusInternalServerError, "query failed", nil)
		return
	}
	ok(c, gin.H{"devices": list})
}

// GetDevice 单个设备通道
// @Summary 查询设备通道
// @Tags 设备
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "设备ID(十进制或0x十六进制)"
// @Param channel path int true "通道(1-16)"
// @Success 200 {object} StandardResponse
// @Failure 404 {object} StandardResponse
// @Router /api/devices/{id}/{channel} [get]
func (h *Handler) GetDevice(c *gin.Context) {
	if h.devices == nil {
		respond(c, http.StatusServiceUnavailable, "device registry disabled", nil)
		return
	}
	key, err := parseKey(c.Param("id"), c.Param("channel"))
	if err != nil {
		respond(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	d, err := h.devices.GetDevice(c.Request.Context(), oria.Model, key.DeviceID, key.Channel)
	if errors.Is(err, gormrepo.ErrNotFound) {
		respond(c, http.StatusNotFound, "device not found", nil)
		return
	}
	if err != nil {
		h.logger.Error("get device failed", zap.Error(err))
		respond(c, http.StatusInternalServerError, "query failed", nil)
		return
	}
	ok(c, d)
}

// ListReadings 历史读数
// @Summary 查询历史读数
// @Tags 读数
// @Produce json
// @Security ApiKeyAuth
// @Param id query string false "设备ID"
// @Param channel query int false "通道"
// @Param since query string false "起始时间(RFC3339)"
// @Param limit query int false "数量上限(默认100)"
// @Success 200 {object} StandardResponse
// @Failure 400 {object} StandardResponse
// @Router /api/readings [get]
func (h *Handler) ListReadings(c *gin.Context) {
	if h.readings == nil {
		respond(c, http.StatusServiceUnavailable, "reading log disabled", nil)
		return
	}
	var f pgstorage.ReadingFilter
	if v := c.Query("id"); v != "" {
		id, err := parseUint8(v)
		if err != nil {
			respond(c, http.StatusBadRequest, "invalid id", nil)
			return
		}
		f.DeviceID = &id
	}
	if v := c.Query("channel"); v != "" {
		ch, err := parseUint8(v)
		if err != nil {
			respond(c, http.StatusBadRequest, "invalid channel", nil)
			return
		}
		f.Channel = &ch
	}
	if v := c.Query("since"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			respond(c, http.StatusBadRequest, "invalid since, want RFC3339", nil)
			return
		}
		f.Since = t
	}
	f.Limit, _ = strconv.Atoi(c.DefaultQuery("limit", "100"))

	list, err := h.readings.ListReadings(c.Request.Context(), f)
	if err != nil {
		h.logger.Error("list readings failed", zap.Error(err))
		respond(c, http.StatusInternalServerError, "query failed", nil)
		return
	}
	ok(c, gin.H{"readings": list, "count": len(list)})
}

// LatestReadings 各设备最新读数
// @Summary 最新读数列表
// @Tags 读数
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} StandardResponse
// @Router /api/readings/latest [get]
func (h *Handler) LatestReadings(c *gin.Context) {
	if h.latest == nil {
		respond(c, http.StatusServiceUnavailable, "latest cache disabled", nil)
		return
	}
	list, err := h.latest.ListLatest(c.Request.Context())
	if err != nil {
		h.logger.Error("list latest failed", zap.Error(err))
		respond(c, http.StatusInternalServerError, "query failed", nil)
		return
	}
	ok(c, gin.H{"readings": list})
}

// LatestReading 单个设备通道的最新读数
// @Summary 单个通道最新读数
// @Tags 读数
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "设备ID"
// @Param channel path int true "通道(1-16)"
// @Success 200 {object} StandardResponse
// @Failure 404 {object} StandardResponse
// @Router /api/readings/latest/{id}/{channel} [get]
func (h *Handler) LatestReading(c *gin.Context) {
	if h.latest == nil {
		respond(c, http.StatusServiceUnavailable, "latest cache disabled", nil)
		return
	}
	key, err := parseKey(c.Param("id"), c.Param("channel"))
	if err != nil {
		respond(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	r, err := h.latest.GetLatest(c.Request.Context(), key)
	if errors.Is(err, redisstorage.ErrNoReading) {
		respond(c, http.StatusNotFound, "no reading", nil)
		return
	}
	if err != nil {
		h.logger.Error("get latest failed", zap.Error(err))
		respond(c, http.StatusInternalServerError, "query failed", nil)
		return
	}
	ok(c, r)
}

// parseUint8 接受十进制或 0x 前缀十六进制
func parseUint8(s string) (uint8, error) {
	v, err := strconv.ParseUint(s, 0, 8)
	return uint8(v), err
}

func parseKey(id, channel string) (coremodel.DeviceKey, error) {
	dev, err := parseUint8(id)
	if err != nil {
		return coremodel.DeviceKey{}, errors.New("invalid id")
	}
	ch, err := parseUint8(channel)
	if err != nil || ch < 1 || ch > 16 {
		return coremodel.DeviceKey{}, errors.New("invalid channel")
	}
	return coremodel.DeviceKey{DeviceID: dev, Channel: ch}, nil
}
