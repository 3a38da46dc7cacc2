// Package docs registers the OpenAPI document served under /swagger.
//
// The layout follows `swag init` output so the file can be regenerated from
// the handler annotations without touching the router.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/enhance": {
            "post": {
                "description": "Rewrites the prompt with more vivid and artistic detail through a single completion call.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Prompts"],
                "summary": "Enhance a prompt",
                "operationId": "enhancePrompt",
                "parameters": [
                    {
                        "description": "Enhancement payload",
                        "name": "body",
                        "in": "body",
                        "required": true,
                        "schema": {"$ref": "#/definitions/handlers.EnhanceRequest"}
                    }
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.EnhanceResponse"}},
                    "400": {"description": "Validation failed", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "500": {"description": "Not configured, upstream failure, or empty result", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/generate": {
            "post": {
                "description": "Validates the payload and asks the provider for exactly one URL-format image. Each call is billed and computed fresh.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Images"],
                "summary": "Generate an image",
                "operationId": "generateImage",
                "parameters": [
                    {
                        "description": "Generation payload",
                        "name": "body",
                        "in": "body",
                        "required": true,
                        "schema": {"$ref": "#/definitions/handlers.GenerateRequest"}
                    }
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.GenerateResponse"}},
                    "400": {"description": "Validation failed", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "500": {"description": "Not configured or upstream failure", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "handlers.EnhanceRequest": {
            "type": "object",
            "properties": {"prompt": {"type": "string", "example": "a cat"}}
        },
        "handlers.EnhanceResponse": {
            "type": "object",
            "properties": {"enhanced": {"type": "string", "example": "A regal ginger cat lounging in a sunbeam, warm golden light"}}
        },
        "handlers.ErrorResponse": {
            "type": "object",
            "properties": {
                "code": {"type": "string", "example": "validation_failed"},
                "error": {"type": "string", "example": "Prompt is required"},
                "request_id": {"type": "string", "example": "123e4567-e89b-12d3-a456-426614174000"}
            }
        },
        "handlers.GenerateRequest": {
            "type": "object",
            "properties": {
                "prompt": {"type": "string", "example": "a red fox in snow"},
                "quality": {"type": "string", "enum": ["standard", "hd"], "example": "standard"},
                "size": {"type": "string", "enum": ["1024x1024", "1024x1792", "1792x1024"], "example": "1024x1024"},
                "style": {"type": "string", "enum": ["vivid", "natural"], "example": "vivid"}
            }
        },
        "handlers.GenerateResponse": {
            "type": "object",
            "properties": {
                "revisedPrompt": {"type": "string", "example": "A red fox standing in fresh snow, soft morning light"},
                "url": {"type": "string", "example": "https://img/1.png"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api",
	Schemes:          []string{},
	Title:            "Image Studio API",
	Description:      "Thin proxy endpoints for prompt-to-image generation and prompt enhancement.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
