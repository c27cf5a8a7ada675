package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"

	"cctv-monitoring/be/models"
	"cctv-monitoring/be/repositories"
	"cctv-monitoring/be/utils"

	"github.com/samber/lo"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

const (
	userExportSheet   = "Users"
	MinPasswordLength = 6
)

var (
	userNameHeaders = []string{"nama", "name"}
	usernameHeaders = []string{"username"}
	nipHeaders      = []string{"nip", "nik"}
	passwordHeaders = []string{"password"}
	roleHeaders     = []string{"role"}

	userExportHeader = []interface{}{"Nama", "Username", "Nip", "Role"}
)

// UserImportRow is one validated row of a user import. An empty Password
// keeps an existing user's password and gives a new user the default one.
type UserImportRow struct {
	Line     int    `json:"line"`
	Name     string `json:"name"`
	Username string `json:"username"`
	NIP      *int64 `json:"nip,omitempty"`
	Password string `json:"-"`
	Role     string `json:"role"`
}

func (r UserImportRow) nipKey() string {
	if r.NIP == nil {
		return ""
	}
	return strconv.FormatInt(*r.NIP, 10)
}

// ParseUserImport reads the first sheet of an xlsx file with Nama, Username,
// Nip, Password and Role columns. Nip and Password are optional.
func ParseUserImport(r io.Reader) ([]UserImportRow, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, &ImportValidationError{Problems: []string{"workbook has no sheets"}}
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet: %w", err)
	}
	if len(rows) == 0 {
		return nil, &ImportValidationError{Problems: []string{"sheet is empty"}}
	}

	nameCol := headerIndex(rows[0], userNameHeaders)
	usernameCol := headerIndex(rows[0], usernameHeaders)
	roleCol := headerIndex(rows[0], roleHeaders)
	nipCol := headerIndex(rows[0], nipHeaders)
	passwordCol := headerIndex(rows[0], passwordHeaders)
	if nameCol < 0 || usernameCol < 0 || roleCol < 0 {
		return nil, &ImportValidationError{Problems: []string{
			"header must contain Nama, Username and Role columns",
		}}
	}

	var (
		parsed   []UserImportRow
		problems []string
	)
	for i, cells := range rows[1:] {
		line := i + 2
		row := UserImportRow{
			Line:     line,
			Name:     cellAt(cells, nameCol),
			Username: cellAt(cells, usernameCol),
			Password: cellAt(cells, passwordCol),
			Role:     cellAt(cells, roleCol),
		}
		rawNIP := cellAt(cells, nipCol)
		if row.Name == "" && row.Username == "" && row.Role == "" && rawNIP == "" {
			continue
		}

		var nipErr error
		if rawNIP != "" {
			nip, err := strconv.ParseInt(rawNIP, 10, 64)
			if err != nil {
				nipErr = err
			} else {
				row.NIP = &nip
			}
		}

		switch {
		case row.Name == "":
			problems = append(problems, fmt.Sprintf("row %d: name is required", line))
		case row.Username == "":
			problems = append(problems, fmt.Sprintf("row %d: username is required", line))
		case row.Role == "":
			problems = append(problems, fmt.Sprintf("row %d: role is required", line))
		case nipErr != nil:
			problems = append(problems, fmt.Sprintf("row %d: invalid nip %q", line, rawNIP))
		case row.Password != "" && len(row.Password) < MinPasswordLength:
			problems = append(problems, fmt.Sprintf("row %d: password must be at least %d characters", line, MinPasswordLength))
		default:
			parsed = append(parsed, row)
		}
	}

	problems = append(problems, duplicates(parsed, "username", func(r UserImportRow) string { return r.Username })...)
	problems = append(problems, duplicates(parsed, "nip", UserImportRow.nipKey)...)

	if len(problems) > 0 {
		return nil, &ImportValidationError{Problems: problems}
	}
	return parsed, nil
}

// UserImportService upserts imported users.
type UserImportService struct {
	db              *gorm.DB
	defaultPassword string
}

func NewUserImportService(db *gorm.DB, defaultPassword string) *UserImportService {
	return &UserImportService{db: db, defaultPassword: defaultPassword}
}

// Import applies rows in one transaction. A user is matched by username
// first, then by nip. Unknown roles, and rows whose username and nip belong
// to two different users, fail the whole import with an ImportValidationError.
func (s *UserImportService) Import(ctx context.Context, rows []UserImportRow) (ImportSummary, error) {
	var summary ImportSummary

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		users := repositories.NewUserRepository(tx)
		roles := repositories.NewRoleRepository(tx)
		roleIDs := make(map[string]uint)
		var problems []string

		for _, row := range rows {
			roleID, ok := roleIDs[row.Role]
			if !ok {
				role, err := roles.GetByName(ctx, row.Role)
				if errors.Is(err, gorm.ErrRecordNotFound) {
					problems = append(problems, fmt.Sprintf("row %d: unknown role %q", row.Line, row.Role))
					continue
				}
				if err != nil {
					return fmt.Errorf("row %d: failed to resolve role: %w", row.Line, err)
				}
				roleID = role.ID
				roleIDs[row.Role] = roleID
			}

			existing, conflict, err := matchUser(ctx, users, row)
			if err != nil {
				return fmt.Errorf("row %d: failed to look up user: %w", row.Line, err)
			}
			if conflict != "" {
				problems = append(problems, conflict)
				continue
			}

			if existing == nil {
				taken, err := users.Taken(ctx, row.Username, row.NIP, 0)
				if err != nil {
					return fmt.Errorf("row %d: failed to check user: %w", row.Line, err)
				}
				if taken {
					problems = append(problems, fmt.Sprintf("row %d: username or nip belongs to a deleted user", row.Line))
					continue
				}
				password := lo.Ternary(row.Password != "", row.Password, s.defaultPassword)
				hash, err := utils.HashPassword(password)
				if err != nil {
					return fmt.Errorf("row %d: failed to hash password: %w", row.Line, err)
				}
				user := &models.User{
					Name:     row.Name,
					Username: row.Username,
					NIP:      row.NIP,
					Password: hash,
					RoleID:   roleID,
				}
				if err := users.Create(ctx, user); err != nil {
					return fmt.Errorf("row %d: failed to create user: %w", row.Line, err)
				}
				summary.Created++
				continue
			}

			// a row without a nip keeps the stored one
			nip := lo.Ternary(row.NIP != nil, row.NIP, existing.NIP)
			profileChanged := existing.Name != row.Name || existing.Username != row.Username ||
				existing.RoleID != roleID || !sameNIP(existing.NIP, nip)
			if !profileChanged && row.Password == "" {
				summary.Unchanged++
				continue
			}
			if profileChanged {
				taken, err := users.Taken(ctx, row.Username, nip, existing.ID)
				if err != nil {
					return fmt.Errorf("row %d: failed to check user: %w", row.Line, err)
				}
				if taken {
					problems = append(problems, fmt.Sprintf("row %d: username or nip belongs to another user", row.Line))
					continue
				}
				existing.Name = row.Name
				existing.Username = row.Username
				existing.NIP = nip
				existing.RoleID = roleID
				if err := users.UpdateProfile(ctx, existing); err != nil {
					return fmt.Errorf("row %d: failed to update user: %w", row.Line, err)
				}
			}
			if row.Password != "" {
				hash, err := utils.HashPassword(row.Password)
				if err != nil {
					return fmt.Errorf("row %d: failed to hash password: %w", row.Line, err)
				}
				if err := users.UpdatePassword(ctx, existing.ID, hash); err != nil {
					return fmt.Errorf("row %d: failed to update password: %w", row.Line, err)
				}
			}
			summary.Updated++
		}

		if len(problems) > 0 {
			return &ImportValidationError{Problems: problems}
		}
		return nil
	})
	if err != nil {
		return ImportSummary{}, err
	}
	return summary, nil
}

func matchUser(ctx context.Context, users *repositories.UserRepository, row UserImportRow) (*models.User, string, error) {
	byUsername, err := users.GetByUsername(ctx, row.Username)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, "", err
	}
	var byNIP *models.User
	if row.NIP != nil {
		byNIP, err = users.GetByNIP(ctx, *row.NIP)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", err
		}
	}

	switch {
	case byUsername != nil && byNIP != nil && byUsername.ID != byNIP.ID:
		return nil, fmt.Sprintf("row %d: username %q and nip %d belong to different users",
			row.Line, row.Username, *row.NIP), nil
	case byUsername != nil:
		return byUsername, "", nil
	default:
		return byNIP, "", nil
	}
}

func sameNIP(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// BuildUserWorkbook lists users without their password hashes.
func BuildUserWorkbook(users []models.User) (*excelize.File, error) {
	rows := lo.Map(users, func(u models.User, _ int) []interface{} {
		nip := ""
		if u.NIP != nil {
			nip = strconv.FormatInt(*u.NIP, 10)
		}
		role := ""
		if u.Role != nil {
			role = u.Role.Name
		}
		return []interface{}{u.Name, u.Username, nip, role}
	})
	return buildTable(userExportSheet, userExportHeader, rows)
}
