package http

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/classbridge/classbridge-lms/internal/lms"
)

type userRow struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Role     string `json:"role"`               // usually "student"
	Password string `json:"password,omitempty"` // plaintext, hashed on import
}

// BulkUpsertUsersHandler imports users from a CSV or JSON upload, or a raw
// JSON array body. Existing accounts (matched by email) get their name and
// role updated; new accounts need a password.
func BulkUpsertUsersHandler(store lms.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var rows []userRow
		ct := r.Header.Get("Content-Type")
		if strings.HasPrefix(ct, "multipart/form-data") {
			f, _, err := r.FormFile("file")
			if err != nil {
				http.Error(w, "file required", http.StatusBadRequest)
				return
			}
			defer f.Close()
			// sniff CSV vs JSON by first non-space byte
			buf := make([]byte, 1)
			if _, err := f.Read(buf); err != nil {
				http.Error(w, "empty file", http.StatusBadRequest)
				return
			}
			if _, err := f.(io.Seeker).Seek(0, io.SeekStart); err != nil {
				http.Error(w, "internal error", http.StatusInternalServerError)
				return
			}
			if buf[0] == '[' || buf[0] == '{' {
				if err := json.NewDecoder(f).Decode(&rows); err != nil {
					http.Error(w, "bad json", http.StatusBadRequest)
					return
				}
			} else {
				rs, err := parseUserCSV(f)
				if err != nil {
					http.Error(w, "bad csv: "+err.Error(), http.StatusBadRequest)
					return
				}
				rows = rs
			}
		} else {
			if err := json.NewDecoder(r.Body).Decode(&rows); err != nil {
				http.Error(w, "expected JSON array or multipart file", http.StatusBadRequest)
				return
			}
		}

		inserted, updated := 0, 0
		now := time.Now().UnixMilli()
		for _, row := range rows {
			if row.Role == "" {
				row.Role = string(lms.RoleStudent)
			}
			role := lms.Role(row.Role)
			if role != lms.RoleStudent && role != lms.RoleTeacher && role != lms.RoleAdmin {
				http.Error(w, "invalid role: "+row.Role, http.StatusBadRequest)
				return
			}
			email := strings.ToLower(strings.TrimSpace(row.Email))
			if email == "" {
				http.Error(w, "email required", http.StatusBadRequest)
				return
			}
			existing, err := store.GetUserByEmail(r.Context(), email)
			switch {
			case err == nil:
				existing.Name = row.Name
				existing.Role = role
				if row.Password != "" {
					hash, herr := bcrypt.GenerateFromPassword([]byte(row.Password), 12)
					if herr != nil {
						http.Error(w, "internal error", http.StatusInternalServerError)
						return
					}
					existing.PasswordHash = string(hash)
				}
				if err := store.UpdateUser(r.Context(), existing); err != nil {
					writeErr(w, err)
					return
				}
				updated++
			case lms.IsKind(err, lms.KindNotFound):
				if row.Password == "" {
					http.Error(w, "password required for new user: "+email, http.StatusBadRequest)
					return
				}
				hash, herr := bcrypt.GenerateFromPassword([]byte(row.Password), 12)
				if herr != nil {
					http.Error(w, "internal error", http.StatusInternalServerError)
					return
				}
				u := lms.User{
					ID:           uuid.NewString(),
					Name:         row.Name,
					Email:        email,
					PasswordHash: string(hash),
					Role:         role,
					CreatedAt:    now,
				}
				if err := store.CreateUser(r.Context(), u); err != nil {
					writeErr(w, err)
					return
				}
				inserted++
			default:
				writeErr(w, err)
				return
			}
		}
		writeJSON(w, map[string]any{"inserted": inserted, "updated": updated})
	}
}

func ListUsersHandler(store lms.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		role := lms.Role(r.URL.Query().Get("role"))
		users, err := store.ListUsers(r.Context(), role)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, users)
	}
}

func parseUserCSV(r io.Reader) ([]userRow, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	hdr, err := cr.Read()
	if err != nil {
		return nil, err
	}
	idx := map[string]int{}
	for i, h := range hdr {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, k := range []string{"name", "email", "role"} {
		if _, ok := idx[k]; !ok {
			return nil, errors.New("missing column: " + k)
		}
	}
	var rows []userRow
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		row := userRow{
			Name:  rec[idx["name"]],
			Email: rec[idx["email"]],
			Role:  strings.ToLower(rec[idx["role"]]),
		}
		if i, ok := idx["password"]; ok {
			row.Password = rec[i]
		}
		rows = append(rows, row)
	}
	return rows, nil
}
