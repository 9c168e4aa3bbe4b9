package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"gorm.io/gorm"

	"joblink/internal/config"
	"joblink/internal/database"
)

// 运营工具：企业认证与订阅状态由线下流程审核，审核通过后用本工具回写。
func main() {
	var (
		email        = flag.String("email", "", "账号邮箱（必填）")
		verify       = flag.String("verify", "", "企业认证状态：VERIFIED 或 PENDING（可选）")
		subscription = flag.String("subscription", "", "订阅状态：ACTIVE 或 INACTIVE（可选）")
		dbHost       = flag.String("db-host", "", "数据库 Host（可选，默认读 DATABASE_HOST）")
		dbPort       = flag.Int("db-port", 0, "数据库 Port（可选，默认读 DATABASE_PORT）")
		dbName       = flag.String("db-name", "", "数据库名（可选，默认读 POSTGRES_DB）")
		dbUser       = flag.String("db-user", "", "数据库用户（可选，默认读 POSTGRES_USER）")
		dbPass       = flag.String("db-password", "", "数据库密码（可选，默认读 POSTGRES_PASSWORD）")
		sslMode      = flag.String("db-sslmode", "", "数据库 SSLMODE（可选，默认读 DATABASE_SSLMODE）")
	)
	flag.Parse()

	addr := strings.ToLower(strings.TrimSpace(*email))
	if addr == "" {
		log.Fatal("missing required flag: --email")
	}

	verifyStatus := strings.ToUpper(strings.TrimSpace(*verify))
	subscriptionStatus := strings.ToUpper(strings.TrimSpace(*subscription))
	if verifyStatus == "" && subscriptionStatus == "" {
		log.Fatal("nothing to do: pass --verify and/or --subscription")
	}
	if verifyStatus != "" && verifyStatus != "VERIFIED" && verifyStatus != "PENDING" {
		log.Fatalf("invalid --verify value %q (want VERIFIED or PENDING)", verifyStatus)
	}
	if subscriptionStatus != "" && subscriptionStatus != "ACTIVE" && subscriptionStatus != "INACTIVE" {
		log.Fatalf("invalid --subscription value %q (want ACTIVE or INACTIVE)", subscriptionStatus)
	}

	dbCfg, err := loadDatabaseConfig(*dbHost, *dbPort, *dbName, *dbUser, *dbPass, *sslMode)
	if err != nil {
		log.Fatalf("load database config: %v", err)
	}

	db, err := database.InitDatabase(dbCfg)
	if err != nil {
		log.Fatalf("init database: %v", err)
	}

	var user database.User
	switch err := db.Where("email = ?", addr).First(&user).Error; {
	case err == nil:
	case errors.Is(err, gorm.ErrRecordNotFound):
		log.Fatalf("user %q not found", addr)
	default:
		log.Fatalf("query user: %v", err)
	}

	updates := map[string]any{}
	if verifyStatus != "" {
		if user.Role != database.RoleCompany {
			log.Fatalf("--verify only applies to company accounts, %q is %s", addr, user.Role)
		}
		updates["verification_status"] = verifyStatus
	}
	if subscriptionStatus != "" {
		updates["subscription_status"] = subscriptionStatus
	}

	if err := db.Model(&user).Updates(updates).Error; err != nil {
		log.Fatalf("update user: %v", err)
	}

	fmt.Printf("账号 %s 已更新：\n", addr)
	if verifyStatus != "" {
		fmt.Printf("认证状态: %s\n", verifyStatus)
	}
	if subscriptionStatus != "" {
		fmt.Printf("订阅状态: %s\n", subscriptionStatus)
	}
}

func loadDatabaseConfig(host string, port int, name, user, password, sslmode string) (config.DatabaseConfig, error) {
	if strings.TrimSpace(host) == "" {
		host = os.Getenv("DATABASE_HOST")
	}
	if port <= 0 {
		if env := strings.TrimSpace(os.Getenv("DATABASE_PORT")); env != "" {
			p, err := strconv.Atoi(env)
			if err != nil {
				return config.DatabaseConfig{}, fmt.Errorf("parse DATABASE_PORT: %w", err)
			}
			port = p
		}
	}
	if strings.TrimSpace(name) == "" {
		name = os.Getenv("POSTGRES_DB")
	}
	if strings.TrimSpace(user) == "" {
		user = os.Getenv("POSTGRES_USER")
	}
	if strings.TrimSpace(password) == "" {
		password = os.Getenv("POSTGRES_PASSWORD")
	}
	if strings.TrimSpace(sslmode) == "" {
		sslmode = os.Getenv("DATABASE_SSLMODE")
	}

	if strings.TrimSpace(host) == "" {
		host = "localhost"
	}
	if port <= 0 {
		port = 5432
	}
	if strings.TrimSpace(sslmode) == "" {
		sslmode = "disable"
	}
	if strings.TrimSpace(name) == "" {
		return config.DatabaseConfig{}, errors.New("database name is required (POSTGRES_DB)")
	}
	if strings.TrimSpace(user) == "" {
		return config.DatabaseConfig{}, errors.New("database user is required (POSTGRES_USER)")
	}
	if strings.TrimSpace(password) == "" {
		return config.DatabaseConfig{}, errors.New("database password is required (POSTGRES_PASSWORD)")
	}

	return config.DatabaseConfig{
		Host:     host,
		Port:     port,
		Name:     name,
		User:     user,
		Password: password,
		SSLMode:  sslmode,
	}, nil
}
