// Package docs provides the OpenAPI documentation for the PageIndex API.
//
// PageIndex API
//
//	@title			PageIndex API
//	@version		1.0
//	@description	Extracts the hierarchical table of contents of uploaded PDF documents.
//
//	@contact.name	API Support
//	@contact.url	https://github.com/jackzampolin/pageindex
//
//	@license.name	MIT
//	@license.url	https://opensource.org/licenses/MIT
//
//	@host		localhost:8000
//	@BasePath	/
//
//	@schemes	http https
package docs

//go:generate swag init -g ../cmd/pageindex/serve.go -o . --parseDependency --parseInternal
