package trip

import "github.com/gofiber/fiber/v2"

// RegisterRoutes exposes the read-only trip boundary. Trip mutation happens
// over the device protocol, never over HTTP.
func RegisterRoutes(r fiber.Router, svc *Service, authMiddleware fiber.Handler) {
	r.Get("/:id", authMiddleware, func(c *fiber.Ctx) error {
		tr, err := svc.Get(c.Context(), c.Params("id"))
		if err != nil {
			return fiber.NewError(fiber.StatusNotFound, "trip not found")
		}
		return c.JSON(tr)
	})

	r.Get("/:id/summary", authMiddleware, func(c *fiber.Ctx) error {
		tr, err := svc.Get(c.Context(), c.Params("id"))
		if err != nil {
			return fiber.NewError(fiber.StatusNotFound, "trip not found")
		}
		if tr.Summary == nil {
			return fiber.NewError(fiber.StatusNotFound, "trip not analyzed yet")
		}
		return c.JSON(tr.Summary)
	})
}
