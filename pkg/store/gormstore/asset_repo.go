package gormstore

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/uspace/uatrack/pkg/model"
)

// findInEnvironment looks an asset up by its natural key.
func (r *LinkedRepository[T]) findInEnvironment(ctx context.Context, environmentID uuid.UUID, column string, value interface{}) (*T, error) {
	return r.FindOne(ctx, Fields{columnEnvironmentID: environmentID, column: value})
}

type FileRepository struct {
	*LinkedRepository[model.File]
}

func NewFileRepository(db *gorm.DB, logger *zap.Logger) *FileRepository {
	return &FileRepository{LinkedRepository: NewLinkedRepository[model.File](db, logger)}
}

func (r *FileRepository) GetByPath(ctx context.Context, environmentID uuid.UUID, path string) (*model.File, error) {
	return r.findInEnvironment(ctx, environmentID, "path", path)
}

type EmailRepository struct {
	*LinkedRepository[model.Email]
}

func NewEmailRepository(db *gorm.DB, logger *zap.Logger) *EmailRepository {
	return &EmailRepository{LinkedRepository: NewLinkedRepository[model.Email](db, logger)}
}

func (r *EmailRepository) GetByAddress(ctx context.Context, environmentID uuid.UUID, address string) (*model.Email, error) {
	return r.findInEnvironment(ctx, environmentID, "address", address)
}

type OperatorRepository struct {
	*LinkedRepository[model.Operator]
}

func NewOperatorRepository(db *gorm.DB, logger *zap.Logger) *OperatorRepository {
	return &OperatorRepository{LinkedRepository: NewLinkedRepository[model.Operator](db, logger,
		withRefs(ref{column: "email_id", target: &model.Email{}}),
		withPreload("Email"),
	)}
}

func (r *OperatorRepository) GetByName(ctx context.Context, environmentID uuid.UUID, name string) (*model.Operator, error) {
	return r.findInEnvironment(ctx, environmentID, "name", name)
}

type DroneRepository struct {
	*LinkedRepository[model.Drone]
}

func NewDroneRepository(db *gorm.DB, logger *zap.Logger) *DroneRepository {
	return &DroneRepository{LinkedRepository: NewLinkedRepository[model.Drone](db, logger,
		withRefs(ref{column: "operator_id", target: &model.Operator{}}),
		withPreload("Operator"),
	)}
}

func (r *DroneRepository) GetBySerialNumber(ctx context.Context, environmentID uuid.UUID, serial string) (*model.Drone, error) {
	return r.findInEnvironment(ctx, environmentID, "serial_number", serial)
}

func (r *DroneRepository) ListByOperator(ctx context.Context, operatorID uuid.UUID) ([]model.Drone, error) {
	return r.FilterBy(ctx, Fields{"operator_id": operatorID})
}

type UhubOrgRepository struct {
	*LinkedRepository[model.UhubOrg]
}

func NewUhubOrgRepository(db *gorm.DB, logger *zap.Logger) *UhubOrgRepository {
	return &UhubOrgRepository{LinkedRepository: NewLinkedRepository[model.UhubOrg](db, logger)}
}

func (r *UhubOrgRepository) GetByName(ctx context.Context, environmentID uuid.UUID, name string) (*model.UhubOrg, error) {
	return r.findInEnvironment(ctx, environmentID, "name", name)
}

type UhubUserRepository struct {
	*LinkedRepository[model.UhubUser]
}

func NewUhubUserRepository(db *gorm.DB, logger *zap.Logger) *UhubUserRepository {
	return &UhubUserRepository{LinkedRepository: NewLinkedRepository[model.UhubUser](db, logger,
		withRefs(
			ref{column: "email_id", target: &model.Email{}},
			ref{column: "organization_id", target: &model.UhubOrg{}},
		),
		withPreload("Email", "Organization"),
	)}
}

func (r *UhubUserRepository) GetByUsername(ctx context.Context, environmentID uuid.UUID, username string) (*model.UhubUser, error) {
	return r.findInEnvironment(ctx, environmentID, "username", username)
}

type UasZoneRepository struct {
	*LinkedRepository[model.UasZone]
}

func NewUasZoneRepository(db *gorm.DB, logger *zap.Logger) *UasZoneRepository {
	return &UasZoneRepository{LinkedRepository: NewLinkedRepository[model.UasZone](db, logger,
		withLinks(model.LinkOrganizations, model.LinkReasons),
	)}
}

func (r *UasZoneRepository) GetByName(ctx context.Context, environmentID uuid.UUID, name string) (*model.UasZone, error) {
	return r.findInEnvironment(ctx, environmentID, "name", name)
}

type UspaceRepository struct {
	*LinkedRepository[model.Uspace]
}

func NewUspaceRepository(db *gorm.DB, logger *zap.Logger) *UspaceRepository {
	return &UspaceRepository{LinkedRepository: NewLinkedRepository[model.Uspace](db, logger)}
}

func (r *UspaceRepository) GetByCode(ctx context.Context, environmentID uuid.UUID, code string) (*model.Uspace, error) {
	return r.findInEnvironment(ctx, environmentID, "code", code)
}
