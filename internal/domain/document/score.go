package document

// Field weights for the confidence score. Machine-decoded codes carry the most
// evidence, free-text names the least. A PIX receipt has no numeric code, so
// its monetary value counts for more.
const (
	weightCodigoBarras   = 30
	weightLinhaDigitavel = 25
	weightValue          = 15
	weightValuePix       = 20
	weightDueDate        = 10
	weightBeneficiary    = 10
	weightCNPJ           = 5
	weightPayer          = 5

	// Supplementary identity fields found on statements and tax guides.
	weightTaxPeriod   = 5
	weightRevenueCode = 5
	weightPixKey      = 5
	weightDocumentID  = 5

	maxConfidence = 100
)

// Score sums the weights of the fields present, capped at 100. Pure function:
// same fields, same type, same score.
func Score(docType Type, fields Fields) float64 {
	var total float64

	for kind := range fields {
		if fields[kind] == "" {
			continue
		}
		switch kind {
		case FieldCodigoBarras:
			total += weightCodigoBarras
		case FieldLinhaDigitavel:
			total += weightLinhaDigitavel
		case FieldValue:
			if docType == TypePix {
				total += weightValuePix
			} else {
				total += weightValue
			}
		case FieldDueDate:
			total += weightDueDate
		case FieldBeneficiary:
			total += weightBeneficiary
		case FieldCNPJ:
			total += weightCNPJ
		case FieldPayer:
			total += weightPayer
		case FieldTaxPeriod:
			total += weightTaxPeriod
		case FieldRevenueCode:
			total += weightRevenueCode
		case FieldPixKey:
			total += weightPixKey
		case FieldDocumentID:
			total += weightDocumentID
		}
	}

	if total > maxConfidence {
		total = maxConfidence
	}
	return total
}
