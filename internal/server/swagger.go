package server

//go:generate swag init -g swagger.go -o docs

// @title Spectra API
// @version 0.1
// @description Simulated inspection scans: start a scan, follow its progress and fetch the generated defect report.
// @contact.name Spectra Maintainers
// @contact.url https://github.com/raysh454/spectra
// @BasePath /
