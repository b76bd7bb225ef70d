package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"os"
	"strings"
	"time"
	_ "time/tzdata"

	"go.uber.org/zap"

	"FieldForce/config"
	"FieldForce/internal/model"
	"FieldForce/internal/model/dto"
	"FieldForce/internal/repository"
	"FieldForce/pkg/logger"
	"FieldForce/pkg/token"
	"FieldForce/storage/database"
)

// 运维工具：为员工签发 token，登录流程不在本服务内
func main() {
	var (
		employeeID = flag.Int64("employee", 0, "employee id to issue tokens for")
		seed       = flag.Bool("seed", false, "create or update the employee record before issuing tokens")
		name       = flag.String("name", "", "employee name, used with -seed")
		email      = flag.String("email", "", "employee email, used with -seed")
		timezone   = flag.String("timezone", "", "IANA timezone, empty means the organisation default")
	)
	flag.Parse()

	config.MustLoad()
	cfg := config.Cfg

	logger.Init()
	defer logger.Sync()

	if *employeeID <= 0 {
		logger.Logger.Fatal("-employee must be a positive id")
	}

	if *seed {
		if err := seedEmployee(*employeeID, *name, *email, *timezone); err != nil {
			logger.Logger.Fatal("Failed to seed employee", zap.Int64("employee_id", *employeeID), zap.Error(err))
		}
	}

	if err := token.Init(token.Options{
		Secret:     cfg.JWTSecret,
		AccessTTL:  time.Duration(cfg.JWTExpireMinutes) * time.Minute,
		RefreshTTL: time.Duration(cfg.JWTRefreshDays) * 24 * time.Hour,
	}); err != nil {
		logger.Logger.Fatal("Failed to initialize token package", zap.Error(err))
	}

	access, refresh, expiresIn, err := token.GenerateTokenPair(*employeeID)
	if err != nil {
		logger.Logger.Fatal("Failed to generate tokens", zap.Error(err))
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(dto.NewTokenPairData(access, refresh, expiresIn))
}

func seedEmployee(id int64, name, email, timezone string) error {
	if strings.TrimSpace(name) == "" || strings.TrimSpace(email) == "" {
		return errors.New("-name and -email are required with -seed")
	}
	if timezone != "" {
		if _, err := time.LoadLocation(timezone); err != nil {
			return err
		}
	}

	if err := database.Init(); err != nil {
		return err
	}
	defer func() {
		_ = database.Close(context.Background())
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	employee := &model.Employee{
		BaseModel: model.BaseModel{ID: id},
		Name:      strings.TrimSpace(name),
		Email:     strings.TrimSpace(email),
		Role:      model.EmployeeRoleEmployee,
		Status:    model.EmployeeStatusActive,
		Timezone:  timezone,
	}
	if err := repository.NewGormStore(database.DB()).SaveEmployee(ctx, employee); err != nil {
		return err
	}

	logger.Logger.Info("Employee seeded",
		zap.Int64("employee_id", id),
		zap.String("timezone", timezone),
	)
	return nil
}
