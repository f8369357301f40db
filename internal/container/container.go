package container

import (
	"github.com/sirupsen/logrus"

	app "port-vision/internal/application"
	"port-vision/internal/domain/port"
)

type Container struct {
	UserService       *app.UserService
	InspectionService *app.InspectionService
}

func New(userRepo port.UserRepository, detectors []port.PortDetector, reports port.ReportRepository, images port.ImageArchive, parser app.LabelParser, log *logrus.Entry) *Container {
	userService := app.NewUserService(userRepo)
	inspectionService := app.NewInspectionService(detectors, reports, images, parser, log)

	return &Container{
		UserService:       userService,
		InspectionService: inspectionService,
	}
}
