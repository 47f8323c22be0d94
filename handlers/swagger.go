package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RegisterSwagger registers a small Swagger UI page and the OpenAPI document
// for the snippet API.
// - GET /swagger/index.html  -> HTML page that loads the OpenAPI JSON
// - GET /swagger/doc.json    -> machine-readable OpenAPI JSON
func RegisterSwagger(rg gin.IRoutes) {
	rg.GET("/swagger/index.html", func(c *gin.Context) {
		c.Header("Content-Type", "text/html; charset=utf-8")
		c.String(http.StatusOK, swaggerHTML)
	})

	rg.GET("/swagger/doc.json", func(c *gin.Context) {
		c.Data(http.StatusOK, "application/json; charset=utf-8", []byte(swaggerJSON))
	})
}

const swaggerHTML = `<!doctype html>
<html>
  <head>
    <meta charset="utf-8" />
    <title>pastebin API</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@4/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@4/swagger-ui-bundle.js"></script>
    <script>
      window.ui = SwaggerUIBundle({
        url: '/swagger/doc.json',
        dom_id: '#swagger-ui',
      })
    </script>
  </body>
</html>`

const swaggerJSON = `{
  "openapi": "3.0.0",
  "info": { "title": "pastebin", "version": "v0.1.0" },
  "components": {
    "schemas": {
      "Snippet": {
        "type": "object",
        "properties": {
          "id": { "type": "string" },
          "title": { "type": "string", "nullable": true },
          "language": { "type": "string", "nullable": true },
          "isPrivate": { "type": "boolean" },
          "content": { "type": "string" },
          "createdAt": { "type": "string", "format": "date-time" },
          "expiresAt": { "type": "string", "format": "date-time", "nullable": true }
        }
      },
      "CreateSnippet": {
        "type": "object",
        "required": ["content"],
        "properties": {
          "title": { "type": "string", "maxLength": 50 },
          "language": { "type": "string", "maxLength": 10 },
          "isPrivate": { "type": "boolean" },
          "content": { "type": "string", "maxLength": 5000 },
          "expiresInMin": { "type": "integer", "minimum": 0, "maximum": 1440 }
        }
      }
    }
  },
  "paths": {
    "/api/snippets": {
      "post": {
        "summary": "Create a snippet",
        "requestBody": { "content": { "application/json": { "schema": { "$ref": "#/components/schemas/CreateSnippet" } } } },
        "responses": {
          "201": { "description": "created", "content": { "application/json": { "schema": { "$ref": "#/components/schemas/Snippet" } } } },
          "400": { "description": "invalid input" },
          "503": { "description": "storage unavailable" }
        }
      },
      "get": {
        "summary": "List recent public snippets, newest first",
        "parameters": [ { "name": "count", "in": "query", "schema": { "type": "integer", "minimum": 0 } } ],
        "responses": {
          "200": { "description": "snippets", "content": { "application/json": { "schema": { "type": "array", "items": { "$ref": "#/components/schemas/Snippet" } } } } },
          "400": { "description": "bad count" }
        }
      }
    },
    "/api/snippets/{id}": {
      "get": {
        "summary": "Fetch a snippet by id",
        "parameters": [ { "name": "id", "in": "path", "required": true, "schema": { "type": "string" } } ],
        "responses": {
          "200": { "description": "snippet", "content": { "application/json": { "schema": { "$ref": "#/components/schemas/Snippet" } } } },
          "404": { "description": "unknown or expired" }
        }
      }
    },
    "/health": { "get": { "summary": "Liveness check", "responses": { "200": { "description": "healthy" } } } },
    "/ready": { "get": { "summary": "Readiness check", "responses": { "200": { "description": "ready" }, "503": { "description": "not ready" } } } },
    "/metrics": { "get": { "summary": "Prometheus metrics", "responses": { "200": { "description": "text exposition" } } } }
  }
}`
