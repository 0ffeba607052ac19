package controller

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"research-assistant-be/internal/dto"
	"research-assistant-be/internal/pkg/logger"
	"research-assistant-be/internal/pkg/serverutils"
	"research-assistant-be/internal/service"
	internalWS "research-assistant-be/internal/websocket"
	"research-assistant-be/pkg/research/pipeline"
	"research-assistant-be/pkg/research/status"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/valyala/fasthttp"
)

const sseHeartbeat = 15 * time.Second

type IResearchController interface {
	RegisterRoutes(r fiber.Router)
	Chat(ctx *fiber.Ctx) error
	LoadPaper(ctx *fiber.Ctx) error
	StreamSearch(ctx *fiber.Ctx) error
	Timeline(ctx *fiber.Ctx) error
	FutureWork(ctx *fiber.Ctx) error
	Recommend(ctx *fiber.Ctx) error
	GetSession(ctx *fiber.Ctx) error
	DeleteSession(ctx *fiber.Ctx) error
	StatusStream(ctx *fiber.Ctx) error
	LatestStatus(ctx *fiber.Ctx) error
	StatusSocket(ctx *fiber.Ctx) error
}

type researchController struct {
	researchService service.IResearchService
	logger          logger.ILogger
}

func NewResearchController(researchService service.IResearchService, log logger.ILogger) IResearchController {
	return &researchController{
		researchService: researchService,
		logger:          log,
	}
}

func (c *researchController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/research/v1")
	h.Post("chat", c.Chat)
	h.Post("papers", c.LoadPaper)
	h.Post("search/stream", c.StreamSearch)
	h.Post("timeline", c.Timeline)
	h.Post("future-work", c.FutureWork)
	h.Post("recommendations", c.Recommend)
	h.Get("sessions/:id", c.GetSession)
	h.Delete("sessions/:id", c.DeleteSession)
	h.Get("status", c.StatusStream)
	h.Get("status/latest", c.LatestStatus)
	h.Get("status/ws", c.StatusSocket)
}

func (c *researchController) Chat(ctx *fiber.Ctx) error {
	var req dto.ChatRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.researchService.Chat(ctx.UserContext(), &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success chat", res))
}

func (c *researchController) LoadPaper(ctx *fiber.Ctx) error {
	var req dto.LoadPaperRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.researchService.LoadPaper(ctx.UserContext(), &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success load paper", res))
}

// StreamSearch answers with NDJSON, one pipeline event per line. Validation
// errors are still returned as a regular JSON envelope.
func (c *researchController) StreamSearch(ctx *fiber.Ctx) error {
	var req dto.SearchRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	job, err := c.researchService.PrepareSearch(ctx.UserContext(), &req)
	if err != nil {
		return err
	}

	ctx.Set(fiber.HeaderContentType, "application/x-ndjson")
	ctx.Set(fiber.HeaderCacheControl, "no-cache")
	ctx.Set("X-Status-Key", job.StatusKey())

	ctx.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		// The fiber ctx is recycled once the handler returns.
		runCtx, cancel := context.WithCancel(context.Background())
		defer cancel()

		enc := json.NewEncoder(w)
		_, err := job.Run(runCtx, func(ev pipeline.Event) error {
			if err := enc.Encode(ev); err != nil {
				return err
			}
			return w.Flush()
		})
		if err != nil {
			_ = enc.Encode(fiber.Map{"type": "error", "data": err.Error()})
			_ = w.Flush()
		}
	}))
	return nil
}

func (c *researchController) Timeline(ctx *fiber.Ctx) error {
	var req dto.SynthesisRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.researchService.Timeline(ctx.UserContext(), &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success generate timeline", res))
}

func (c *researchController) FutureWork(ctx *fiber.Ctx) error {
	var req dto.SynthesisRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.researchService.FutureWork(ctx.UserContext(), &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success generate future work", res))
}

func (c *researchController) Recommend(ctx *fiber.Ctx) error {
	var req dto.RecommendRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.researchService.Recommend(ctx.UserContext(), &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get recommendations", res))
}

func (c *researchController) GetSession(ctx *fiber.Ctx) error {
	res, err := c.researchService.GetSession(ctx.UserContext(), ctx.Params("id"))
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get session", res))
}

func (c *researchController) DeleteSession(ctx *fiber.Ctx) error {
	if err := c.researchService.DeleteSession(ctx.UserContext(), ctx.Params("id")); err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success delete session", nil))
}

// StatusStream pushes progress messages as server-sent events, with a
// comment heartbeat so idle proxies keep the connection open.
func (c *researchController) StatusStream(ctx *fiber.Ctx) error {
	key := ctx.Query("key")

	subCtx, cancel := context.WithCancel(context.Background())
	updates, err := c.researchService.SubscribeStatus(subCtx, key)
	if err != nil {
		cancel()
		return err
	}

	ctx.Set(fiber.HeaderContentType, "text/event-stream")
	ctx.Set(fiber.HeaderCacheControl, "no-cache")
	ctx.Set(fiber.HeaderConnection, "keep-alive")

	ctx.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		defer cancel()

		if last, err := c.researchService.LatestStatus(key); err == nil {
			if writeSSE(w, status.Update{Key: last.Key, Message: last.Message, At: last.At}) != nil {
				return
			}
		}

		heartbeat := time.NewTicker(sseHeartbeat)
		defer heartbeat.Stop()
		for {
			select {
			case u, ok := <-updates:
				if !ok {
					return
				}
				if writeSSE(w, u) != nil {
					return
				}
			case <-heartbeat.C:
				if _, err := w.WriteString(": heartbeat\n\n"); err != nil {
					return
				}
				if err := w.Flush(); err != nil {
					return
				}
			}
		}
	}))
	return nil
}

func writeSSE(w *bufio.Writer, u status.Update) error {
	data, err := json.Marshal(u)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
		return err
	}
	return w.Flush()
}

func (c *researchController) LatestStatus(ctx *fiber.Ctx) error {
	res, err := c.researchService.LatestStatus(ctx.Query("key"))
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get status", res))
}

func (c *researchController) StatusSocket(ctx *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(ctx) {
		return fiber.ErrUpgradeRequired
	}
	key := ctx.Query("key")
	return websocket.New(func(conn *websocket.Conn) {
		internalWS.ServeStatus(conn, key, c.researchService.SubscribeStatus, c.logger)
	})(ctx)
}
