package classifier

import (
	"io"
	"net/http"

	"github.com/gofiber/fiber/v2"
)

// Handler exposes the banknote prediction endpoint.
type Handler struct {
	classifier Classifier
}

// NewHandler builds a prediction handler around the injected classifier.
func NewHandler(classifier Classifier) *Handler {
	return &Handler{classifier: classifier}
}

// Predict classifies an uploaded banknote image.
func (h *Handler) Predict(c *fiber.Ctx) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, "No se encontró ningún archivo")
	}
	if fileHeader.Filename == "" || fileHeader.Size == 0 {
		return fiber.NewError(http.StatusBadRequest, "Ningún archivo seleccionado")
	}

	file, err := fileHeader.Open()
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	defer file.Close()

	image, err := io.ReadAll(file)
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	prediction, err := h.classifier.Classify(c.UserContext(), image)
	if err != nil {
		return fiber.NewError(http.StatusBadGateway, err.Error())
	}
	return c.Status(http.StatusOK).JSON(prediction)
}
