package domain

// ReturnAddress is the address printed on the return label.
type ReturnAddress struct {
	Company string `json:"company"`
	Address string `json:"address"`
	ZipCode string `json:"zip_code"`
	City    string `json:"city"`
	Country string `json:"country"`
}

// LabelRequest describes a single label to generate. Fields are free-form and
// are not validated beyond being present in the payload.
type LabelRequest struct {
	ReturnAddress ReturnAddress `json:"return_address"`
	Order         string        `json:"order"`
	Name          string        `json:"name"`
	Language      string        `json:"language"`
}
