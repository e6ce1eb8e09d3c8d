// Package securitymon detects attack patterns in the audit log and tracks
// them as security incidents.
package securitymon

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/queryhub/QueryHub/app/models"
	"github.com/queryhub/QueryHub/app/repository"
)

const (
	// DetectionWindow is how far back a scan looks for failed logins.
	DetectionWindow = 15 * time.Minute
	// BruteForceThreshold is the failed-login count per IP that opens an
	// incident. Fewer failures produce nothing.
	BruteForceThreshold = 6
)

// ErrIncidentNotFound is returned when resolving an id that does not exist.
var ErrIncidentNotFound = errors.New("securitymon: incident not found")

// ScanResult reports one detection run.
type ScanResult struct {
	ScannedEvents int `json:"scanned_events"`
	SuspiciousIPs int `json:"suspicious_ips"`
	NewIncidents  int `json:"new_incidents"`
}

// Detector scans recent login failures and materializes brute-force
// incidents. Scans are idempotent per IP: an IP with an incident already
// ACTIVE is skipped on later runs.
type Detector struct {
	audit     repository.AuditRepository
	incidents repository.IncidentRepository
	now       func() time.Time
}

func NewDetector(audit repository.AuditRepository, incidents repository.IncidentRepository) *Detector {
	return &Detector{audit: audit, incidents: incidents, now: time.Now}
}

// Scan runs one detection pass over the current window. Each qualifying IP
// gets exactly one incident; IPs are evaluated independently.
func (d *Detector) Scan() (ScanResult, error) {
	since := d.now().Add(-DetectionWindow)
	failures, err := d.audit.GetFailedLoginsSince(since)
	if err != nil {
		return ScanResult{}, fmt.Errorf("load failed logins: %w", err)
	}

	counts := make(map[string]int)
	for _, event := range failures {
		if event.IPAddress == "" {
			continue
		}
		counts[event.IPAddress]++
	}

	// Deterministic iteration order keeps logs and tests stable.
	ips := make([]string, 0, len(counts))
	for ip := range counts {
		if counts[ip] >= BruteForceThreshold {
			ips = append(ips, ip)
		}
	}
	sort.Strings(ips)

	result := ScanResult{ScannedEvents: len(failures), SuspiciousIPs: len(ips)}
	for _, ip := range ips {
		created, err := d.openIncident(ip, counts[ip])
		if err != nil {
			return result, err
		}
		if created {
			result.NewIncidents++
		}
	}
	return result, nil
}

// openIncident creates a brute-force incident for the IP unless one is
// already ACTIVE. Returns whether a new row was created.
func (d *Detector) openIncident(ip string, failures int) (bool, error) {
	existing, err := d.incidents.GetActiveByTypeAndIP(models.IncidentTypeBruteForce, ip)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, fmt.Errorf("check active incident for %s: %w", ip, err)
	}
	if existing != nil {
		// Already tracked; refresh the count on the open incident instead
		// of opening a duplicate.
		if existing.FailureCount != failures {
			existing.FailureCount = failures
			existing.Details = fmt.Sprintf("%d failed logins within %s", failures, DetectionWindow)
			if err := d.incidents.Update(existing); err != nil {
				return false, fmt.Errorf("refresh incident for %s: %w", ip, err)
			}
		}
		return false, nil
	}

	incident := &models.SecurityIncident{
		Type:         models.IncidentTypeBruteForce,
		Severity:     models.IncidentSeverityHigh,
		IPAddress:    ip,
		Status:       models.IncidentStatusActive,
		FailureCount: failures,
		Details:      fmt.Sprintf("%d failed logins within %s", failures, DetectionWindow),
	}
	if err := d.incidents.Create(incident); err != nil {
		return false, fmt.Errorf("create incident for %s: %w", ip, err)
	}
	log.Warnf("[SecurityMon] brute-force incident opened for %s (%d failures)", ip, failures)
	return true, nil
}

// Resolve transitions an incident to RESOLVED. Resolving an already resolved
// incident is a no-op, not an error.
func (d *Detector) Resolve(id uint) (*models.SecurityIncident, error) {
	incident, err := d.incidents.GetByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrIncidentNotFound
		}
		return nil, fmt.Errorf("load incident %d: %w", id, err)
	}
	if !incident.IsActive() {
		return incident, nil
	}

	now := d.now()
	incident.Status = models.IncidentStatusResolved
	incident.ResolvedAt = &now
	if err := d.incidents.Update(incident); err != nil {
		return nil, fmt.Errorf("resolve incident %d: %w", id, err)
	}
	log.Infof("[SecurityMon] incident %d resolved (%s from %s)", incident.ID, incident.Type, incident.IPAddress)
	return incident, nil
}
