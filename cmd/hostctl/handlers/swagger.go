package handlers

import (
	"github.com/imamik/hostctl/internal/swagger"
)

// Swagger prints the endpoint summary of a Swagger 2.0 document.
func Swagger(path string) error {
	doc, err := swagger.Load(path)
	if err != nil {
		return err
	}
	return swagger.Render(stdout(), doc)
}
