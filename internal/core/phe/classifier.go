package phe

// PHE 分級門檻（mg / 100g）
const (
	SafeBelowMg   = 50.0
	CautionMaxMg  = 100.0
	AdultMinPheMg = 250.0
	AdultMaxPheMg = 500.0
)

// Classify 依 PHE 含量分級：<50 Safe，50–100 Caution，>100 Avoid
func Classify(pheMg float64) RiskTier {
	switch {
	case pheMg < SafeBelowMg:
		return TierSafe
	case pheMg <= CautionMaxMg:
		return TierCaution
	default:
		return TierAvoid
	}
}

// TierFor PHE 不存在時回傳 Unknown
func TierFor(pheMg Optional[float64]) RiskTier {
	v, ok := pheMg.Get()
	if !ok {
		return TierUnknown
	}
	return Classify(v)
}
