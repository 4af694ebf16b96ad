// seedctl loads courses, questions and users into the gateway database from
// JSON files. Intended for local setups and CI fixtures.
//
// Usage:
//
//	seedctl -course course.json -questions questions.json
//	seedctl -user student1:secret:student
package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	auth "github.com/pathlight-learning/pathlight-lms/internal/auth/middleware"
	"github.com/pathlight-learning/pathlight-lms/internal/config"
	"github.com/pathlight-learning/pathlight-lms/internal/course"
	"github.com/pathlight-learning/pathlight-lms/internal/db"
	"github.com/pathlight-learning/pathlight-lms/internal/logx"
	"github.com/pathlight-learning/pathlight-lms/internal/store"
)

func main() {
	coursePath := flag.String("course", "", "path to a course JSON file")
	questionsPath := flag.String("questions", "", "path to a questions JSON array")
	userSpec := flag.String("user", "", "user to upsert, as username:password:role")
	flag.Parse()

	cfg := config.FromEnv()
	log := logx.New(cfg.LogLevel, true)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	dbh, err := db.Open(ctx, db.Driver(cfg.DBDriver), cfg.DBDSN)
	if err != nil {
		log.Error("db open failed", "err", err)
		os.Exit(1)
	}
	st := store.NewSQL(dbh)

	if *coursePath != "" {
		var crs course.Course
		if err := readJSON(*coursePath, &crs); err != nil {
			log.Error("read course", "path", *coursePath, "err", err)
			os.Exit(1)
		}
		if err := st.PutCourse(ctx, crs); err != nil {
			log.Error("put course", "course_id", crs.ID, "err", err)
			os.Exit(1)
		}
		log.Info("course seeded", "course_id", crs.ID, "sections", len(crs.Sections))
	}

	if *questionsPath != "" {
		var questions []course.Question
		if err := readJSON(*questionsPath, &questions); err != nil {
			log.Error("read questions", "path", *questionsPath, "err", err)
			os.Exit(1)
		}
		for _, q := range questions {
			if err := st.PutQuestion(ctx, q); err != nil {
				log.Error("put question", "question_id", q.ID, "err", err)
				os.Exit(1)
			}
		}
		log.Info("questions seeded", "count", len(questions))
	}

	if *userSpec != "" {
		parts := strings.SplitN(*userSpec, ":", 3)
		if len(parts) != 3 {
			log.Error("user spec must be username:password:role")
			os.Exit(1)
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(parts[1]), bcrypt.DefaultCost)
		if err != nil {
			log.Error("hash password", "err", err)
			os.Exit(1)
		}
		u := auth.User{
			ID:        parts[0],
			Username:  parts[0],
			PassHash:  string(hash),
			Role:      parts[2],
			CreatedAt: time.Now().Unix(),
		}
		if err := st.CreateUser(ctx, u); err != nil {
			log.Error("upsert user", "username", u.Username, "err", err)
			os.Exit(1)
		}
		log.Info("user seeded", "username", u.Username, "role", u.Role)
	}
}

func readJSON(path string, dst any) error {
	buf, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(buf, dst)
}
