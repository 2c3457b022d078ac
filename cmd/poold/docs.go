package main

// General API documentation for swaggo. Run `make swagger-gen` to generate docs.
//
// @title           poold API
// @version         1.0
// @description     HTTP API for GPU-backed model server pools and request routing.
//
// @contact.name   poold maintainers
//
// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT
//
// @BasePath  /
//
// @schemes http
