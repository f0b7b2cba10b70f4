package controller

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"ai-sqlpilot-be/internal/dto"
	"ai-sqlpilot-be/internal/pkg/serverutils"
	"ai-sqlpilot-be/internal/service"
)

type IExemplarController interface {
	RegisterRoutes(r fiber.Router)
	Save(ctx *fiber.Ctx) error
	Delete(ctx *fiber.Ctx) error
	GetAll(ctx *fiber.Ctx) error
	Search(ctx *fiber.Ctx) error
}

type exemplarController struct {
	service service.IExemplarService
}

func NewExemplarController(service service.IExemplarService) IExemplarController {
	return &exemplarController{service: service}
}

func (c *exemplarController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/exemplar/v1")
	h.Get("", c.GetAll)
	h.Get("search", c.Search)
	h.Post("", c.Save)
	h.Delete(":id", c.Delete)
}

func (c *exemplarController) Save(ctx *fiber.Ctx) error {
	var req dto.SaveExemplarRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.Save(ctx.Context(), &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success save exemplar", res))
}

func (c *exemplarController) Delete(ctx *fiber.Ctx) error {
	id, err := strconv.ParseInt(ctx.Params("id"), 10, 64)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid exemplar id")
	}

	if err := c.service.Delete(ctx.Context(), id); err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse[any]("Success delete exemplar", nil))
}

func (c *exemplarController) Search(ctx *fiber.Ctx) error {
	question := ctx.Query("q")
	if question == "" {
		return fiber.NewError(fiber.StatusBadRequest, "query parameter 'q' is required")
	}
	k, _ := strconv.Atoi(ctx.Query("k", "8"))

	hits, err := c.service.Search(ctx.Context(), question, k)
	if err != nil {
		return err
	}

	res := make([]*dto.ScoredExemplarResponse, len(hits))
	for i, h := range hits {
		res[i] = &dto.ScoredExemplarResponse{
			Id:       h.ID,
			Question: h.Question,
			Context:  h.Context,
			Score:    h.Score,
		}
	}
	return ctx.JSON(serverutils.SuccessResponse("Success search exemplars", res))
}

func (c *exemplarController) GetAll(ctx *fiber.Ctx) error {
	limit, _ := strconv.Atoi(ctx.Query("limit", "50"))
	offset, _ := strconv.Atoi(ctx.Query("offset", "0"))

	res, err := c.service.GetAll(ctx.Context(), limit, offset)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get all exemplars", res))
}
