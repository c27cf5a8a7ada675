package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"

	"cctv-monitoring/be/models"
	"cctv-monitoring/be/repositories"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

// Accepted header names per column, compared case-insensitively.
var (
	nameHeaders     = []string{"titik letak", "name", "camera name"}
	ipHeaders       = []string{"ip address", "ip_address", "ip"}
	locationHeaders = []string{"server monitoring", "location", "lokasi"}
)

type CameraImportRow struct {
	Line      int    `json:"line"`
	Name      string `json:"name"`
	IPAddress string `json:"ip_address"`
	Location  string `json:"location"`
}

// ImportValidationError lists every invalid row of an import file.
type ImportValidationError struct {
	Problems []string
}

func (e *ImportValidationError) Error() string {
	return fmt.Sprintf("invalid import file: %s", strings.Join(e.Problems, "; "))
}

type ImportSummary struct {
	Created   int `json:"created"`
	Updated   int `json:"updated"`
	Unchanged int `json:"unchanged"`
}

// NewStreamKey returns a fresh relay path name for a camera at locationID.
func NewStreamKey(locationID uint) string {
	hex := strings.ReplaceAll(uuid.NewString(), "-", "")
	return fmt.Sprintf("loc_%d_cam_%s", locationID, hex[:8])
}

// ParseCameraImport reads the first sheet of an xlsx file. Rows are
// validated individually and checked for duplicate addresses and names.
func ParseCameraImport(r io.Reader) ([]CameraImportRow, error) {
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

	nameCol := headerIndex(rows[0], nameHeaders)
	ipCol := headerIndex(rows[0], ipHeaders)
	locCol := headerIndex(rows[0], locationHeaders)
	if nameCol < 0 || ipCol < 0 || locCol < 0 {
		return nil, &ImportValidationError{Problems: []string{
			"header must contain Titik Letak, Ip Address and Server Monitoring columns",
		}}
	}

	var (
		parsed   []CameraImportRow
		problems []string
	)
	for i, cells := range rows[1:] {
		line := i + 2
		row := CameraImportRow{
			Line:      line,
			Name:      cellAt(cells, nameCol),
			IPAddress: cellAt(cells, ipCol),
			Location:  cellAt(cells, locCol),
		}
		if row.Name == "" && row.IPAddress == "" && row.Location == "" {
			continue
		}
		switch {
		case row.Name == "":
			problems = append(problems, fmt.Sprintf("row %d: name is required", line))
		case row.Location == "":
			problems = append(problems, fmt.Sprintf("row %d: location is required", line))
		case net.ParseIP(row.IPAddress) == nil:
			problems = append(problems, fmt.Sprintf("row %d: invalid ip address %q", line, row.IPAddress))
		default:
			parsed = append(parsed, row)
		}
	}

	problems = append(problems, duplicates(parsed, "ip address", func(r CameraImportRow) string { return r.IPAddress })...)
	problems = append(problems, duplicates(parsed, "name", func(r CameraImportRow) string { return r.Name })...)

	if len(problems) > 0 {
		return nil, &ImportValidationError{Problems: problems}
	}
	return parsed, nil
}

func headerIndex(header []string, aliases []string) int {
	for i, h := range header {
		if lo.Contains(aliases, strings.ToLower(strings.TrimSpace(h))) {
			return i
		}
	}
	return -1
}

func cellAt(cells []string, i int) string {
	if i < 0 || i >= len(cells) {
		return ""
	}
	return strings.TrimSpace(cells[i])
}

// duplicates reports every non-empty key that appears on more than one row.
func duplicates[T any](rows []T, label string, key func(T) string) []string {
	keys := lo.Filter(lo.Map(rows, func(r T, _ int) string { return key(r) }),
		func(k string, _ int) bool { return k != "" })
	counts := lo.CountValues(keys)
	dupes := lo.Filter(lo.Uniq(keys), func(k string, _ int) bool { return counts[k] > 1 })
	return lo.Map(dupes, func(k string, _ int) string {
		return fmt.Sprintf("duplicate %s %q appears %d times", label, k, counts[k])
	})
}

// CameraImportService upserts imported cameras and their locations.
type CameraImportService struct {
	db *gorm.DB
}

func NewCameraImportService(db *gorm.DB) *CameraImportService {
	return &CameraImportService{db: db}
}

// Import applies rows in one transaction. An existing camera is matched by
// address first, then by name, and only updated when something changed.
// Rows that would give one camera another camera's name fail the whole
// import with an ImportValidationError.
func (s *CameraImportService) Import(ctx context.Context, rows []CameraImportRow) (ImportSummary, error) {
	var summary ImportSummary

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		locations := repositories.NewLocationRepository(tx)
		cameras := repositories.NewCameraRepository(tx)
		locationIDs := make(map[string]uint)
		var conflicts []string

		for _, row := range rows {
			locationID, ok := locationIDs[row.Location]
			if !ok {
				location, err := locations.FindOrCreate(ctx, row.Location)
				if err != nil {
					return fmt.Errorf("row %d: failed to resolve location: %w", row.Line, err)
				}
				locationID = location.ID
				locationIDs[row.Location] = locationID
			}

			existing, conflict, err := matchCamera(ctx, cameras, row)
			if err != nil {
				return fmt.Errorf("row %d: failed to look up camera: %w", row.Line, err)
			}
			if conflict != "" {
				conflicts = append(conflicts, conflict)
				continue
			}

			if existing == nil {
				streamKey := NewStreamKey(locationID)
				camera := &models.Camera{
					Name:       row.Name,
					IPAddress:  row.IPAddress,
					LocationID: locationID,
					StreamKey:  &streamKey,
				}
				if err := cameras.Create(ctx, camera); err != nil {
					return fmt.Errorf("row %d: failed to create camera: %w", row.Line, err)
				}
				summary.Created++
				continue
			}

			if existing.Name == row.Name && existing.IPAddress == row.IPAddress && existing.LocationID == locationID {
				summary.Unchanged++
				continue
			}
			existing.Name = row.Name
			existing.IPAddress = row.IPAddress
			existing.LocationID = locationID
			if err := cameras.UpdateDetails(ctx, existing); err != nil {
				return fmt.Errorf("row %d: failed to update camera: %w", row.Line, err)
			}
			summary.Updated++
		}
		if len(conflicts) > 0 {
			return &ImportValidationError{Problems: conflicts}
		}
		return nil
	})
	if err != nil {
		return ImportSummary{}, err
	}
	return summary, nil
}

// matchCamera returns the camera with the row's address, or failing that the
// camera with its name. When the address and the name belong to two
// different cameras it returns a conflict description instead.
func matchCamera(ctx context.Context, cameras *repositories.CameraRepository, row CameraImportRow) (*models.Camera, string, error) {
	byIP, err := cameras.FindByIP(ctx, row.IPAddress)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, "", err
	}
	byName, err := cameras.FindByName(ctx, row.Name)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, "", err
	}

	switch {
	case byIP != nil && byName != nil && byIP.ID != byName.ID:
		return nil, fmt.Sprintf("row %d: ip address %s belongs to camera %q but name %q is already used by camera %d",
			row.Line, row.IPAddress, byIP.Name, row.Name, byName.ID), nil
	case byIP != nil:
		return byIP, "", nil
	default:
		return byName, "", nil
	}
}
