// file: cmd/expandall/main.go
//
// expandall replays obligation expansion for every active student and then
// runs the overdue sweep. Safe to run any number of times.
//
// Exit codes: 0 clean, 1 at least one student failed, 2 bad usage.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"sekolahku_backend/internals/configs"
	database "sekolahku_backend/internals/databases"
	obligationService "sekolahku_backend/internals/features/fees/obligations/service"
	studentModel "sekolahku_backend/internals/features/school/students/model"
	helper "sekolahku_backend/internals/helpers"
)

func main() {
	level := flag.String("level", "", "restrict to one level, e.g. \"Form 3\"")
	flag.Parse()
	if flag.NArg() > 0 {
		fmt.Fprintln(os.Stderr, "expandall: unexpected arguments")
		flag.Usage()
		os.Exit(2)
	}

	configs.LoadEnv()
	database.ConnectDB()
	db := database.DB

	q := db.Where("student_is_active = TRUE")
	if *level != "" {
		canonical := helper.CanonicalLevel(*level)
		if canonical == "" {
			fmt.Fprintf(os.Stderr, "expandall: unknown level %q\n", *level)
			os.Exit(2)
		}
		q = q.Where("student_level = ?", canonical)
	}

	var students []studentModel.StudentModel
	if err := q.Order("student_code").Find(&students).Error; err != nil {
		log.Printf("[ERROR] student scan failed: %v", err)
		os.Exit(1)
	}

	failures := 0
	for _, student := range students {
		if err := obligationService.ExpandStudent(db, student.StudentID); err != nil {
			log.Printf("[ERROR] expand failed for %s (%s): %v", student.StudentCode, student.StudentID, err)
			failures++
		}
	}

	swept, err := obligationService.PersistOverdue(db, time.Now())
	if err != nil {
		log.Printf("[ERROR] overdue sweep failed: %v", err)
		failures++
	}

	log.Printf("[INFO] expanded %d students (%d failures), %d obligations marked overdue.",
		len(students), failures, swept)
	if failures > 0 {
		os.Exit(1)
	}
	os.Exit(0)
}
