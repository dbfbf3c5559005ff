// file: cmd/seedroles/main.go
//
// seedroles migrates the schema and seeds the first superuser account.
//
//	seedroles -username admin -email admin@sekolahku.app -password <pw>
//
// Exit codes: 0 seeded, 1 runtime error, 2 bad usage.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"sekolahku_backend/internals/configs"
	"sekolahku_backend/internals/constants"
	database "sekolahku_backend/internals/databases"
	catalogModel "sekolahku_backend/internals/features/fees/catalog/model"
	obligationModel "sekolahku_backend/internals/features/fees/obligations/model"
	paymentModel "sekolahku_backend/internals/features/fees/payments/model"
	reminderModel "sekolahku_backend/internals/features/fees/reminders/model"
	studentModel "sekolahku_backend/internals/features/school/students/model"
	userModel "sekolahku_backend/internals/features/users/model"
	userService "sekolahku_backend/internals/features/users/service"
)

func main() {
	username := flag.String("username", "admin", "superuser login name")
	email := flag.String("email", "", "superuser email")
	password := flag.String("password", "", "superuser password")
	migrateOnly := flag.Bool("migrate-only", false, "migrate the schema and exit")
	flag.Parse()

	if !*migrateOnly && (*email == "" || *password == "") {
		fmt.Fprintln(os.Stderr, "seedroles: -email and -password are required")
		flag.Usage()
		os.Exit(2)
	}

	configs.LoadEnv()
	database.ConnectDB()
	db := database.DB

	err := db.AutoMigrate(
		&userModel.UserModel{},
		&userModel.RoleProfileModel{},
		&userModel.ParentStudentModel{},
		&studentModel.StudentModel{},
		&catalogModel.FeeCategoryModel{},
		&catalogModel.FeeStructureModel{},
		&catalogModel.FeeWaiverModel{},
		&catalogModel.AcademicTermModel{},
		&catalogModel.FeeSettingsModel{},
		&obligationModel.FeeStatusModel{},
		&obligationModel.IndividualFeeModel{},
		&paymentModel.PaymentModel{},
		&paymentModel.PaymentItemModel{},
		&reminderModel.ReminderLogModel{},
	)
	if err != nil {
		log.Printf("[ERROR] migration failed: %v", err)
		os.Exit(1)
	}
	log.Println("[INFO] schema migrated.")

	if *migrateOnly {
		os.Exit(0)
	}

	var existing userModel.UserModel
	if err := db.Where("user_name = ? OR email = ?", *username, *email).First(&existing).Error; err == nil {
		log.Printf("[INFO] user %q already exists, nothing to seed.", existing.UserName)
		os.Exit(0)
	}

	hash, err := userService.HashPassword(*password)
	if err != nil {
		log.Printf("[ERROR] password hash failed: %v", err)
		os.Exit(1)
	}

	user := userModel.UserModel{
		UserName: *username,
		FullName: "System Administrator",
		Email:    *email,
		Password: hash,
		IsActive: true,
	}
	if err := db.Create(&user).Error; err != nil {
		log.Printf("[ERROR] user create failed: %v", err)
		os.Exit(1)
	}
	profile := userModel.RoleProfileModel{
		RoleProfileUserID: user.ID,
		RoleProfileRole:   constants.RoleSuperuser,
	}
	if err := db.Create(&profile).Error; err != nil {
		log.Printf("[ERROR] role profile create failed: %v", err)
		os.Exit(1)
	}

	log.Printf("[INFO] seeded superuser %q (%s).", user.UserName, user.ID)
	os.Exit(0)
}
