package providers

import (
	"github.com/smallbiznis/mywill/internal/providers/email"
	"github.com/smallbiznis/mywill/internal/providers/pdf"
	"go.uber.org/fx"
)

var Module = fx.Module("providers",
	email.Module,
	pdf.Module,
)
