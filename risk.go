package vaultcore

// Strength scoring and vault-wide risk classification. Everything here is a
// pure function of its input; the Engine methods in engine_credentials.go
// wrap these with persistence and observability.

const (
	strengthLengthCap  = 40
	strengthVarietyCap = 15
	strongThreshold    = 70
	mediumThreshold    = 40
)

// ScoreStrength rates a secret on a 0-100 scale. The composition is part of
// the persisted-data contract and must stay stable: length contributes up to
// 40 points (2 per character), each present character class adds a fixed
// bonus (10 lowercase, 10 uppercase, 10 digits, 15 other), and distinct
// characters add up to 15 more. Empty input scores 0.
func ScoreStrength(secret string) int {
	if secret == "" {
		return 0
	}

	runes := []rune(secret)

	score := 2 * len(runes)
	if score > strengthLengthCap {
		score = strengthLengthCap
	}

	var hasLower, hasUpper, hasDigit, hasOther bool
	distinct := make(map[rune]struct{}, len(runes))
	for _, r := range runes {
		switch {
		case r >= 'a' && r <= 'z':
			hasLower = true
		case r >= 'A' && r <= 'Z':
			hasUpper = true
		case r >= '0' && r <= '9':
			hasDigit = true
		default:
			hasOther = true
		}
		distinct[r] = struct{}{}
	}

	if hasLower {
		score += 10
	}
	if hasUpper {
		score += 10
	}
	if hasDigit {
		score += 10
	}
	if hasOther {
		score += 15
	}

	variety := len(distinct)
	if variety > strengthVarietyCap {
		variety = strengthVarietyCap
	}
	score += variety

	if score > 100 {
		score = 100
	}
	return score
}

// ClassifyStrength maps a score to its persisted label: 70 and above is
// strong, 40 to 69 is medium, everything below is weak.
func ClassifyStrength(score int) Strength {
	switch {
	case score >= strongThreshold:
		return StrengthStrong
	case score >= mediumThreshold:
		return StrengthMedium
	default:
		return StrengthWeak
	}
}

// ComputeRiskSnapshot classifies a credential set into the three risk lists.
//
// Compromised preserves input order. Reused groups records by byte-exact
// secret equality: every group of two or more contributes all members, in
// first-seen order within the group, groups concatenated in first-seen-group
// order. Weak uses the persisted Strength when set and a live
// classification otherwise. The lists may overlap; see
// [RiskSnapshot.IssueCount] for the aggregate contract.
//
// Runs in O(N): one pass each for compromised and weak, one hash-grouping
// pass for reuse.
func ComputeRiskSnapshot(records []CredentialRecord) RiskSnapshot {
	var snap RiskSnapshot

	groups := make(map[string][]int, len(records))
	groupOrder := make([]string, 0, len(records))

	for i, record := range records {
		if record.Compromised {
			snap.Compromised = append(snap.Compromised, record)
		}

		strength := record.Strength
		if strength == "" {
			strength = ClassifyStrength(ScoreStrength(record.Secret))
		}
		if strength == StrengthWeak {
			snap.Weak = append(snap.Weak, record)
		}

		if _, seen := groups[record.Secret]; !seen {
			groupOrder = append(groupOrder, record.Secret)
		}
		groups[record.Secret] = append(groups[record.Secret], i)
	}

	for _, secret := range groupOrder {
		members := groups[secret]
		if len(members) < 2 {
			continue
		}
		for _, i := range members {
			snap.Reused = append(snap.Reused, records[i])
		}
	}

	return snap
}
