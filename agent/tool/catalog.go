package tool

import (
	"context"
	"fmt"
	"time"

	contractx "github.com/botero-soto/sotobot/agent/contract"
	"github.com/botero-soto/sotobot/agent/prompt"
)

// Tool names referenced by the conversation flow definitions.
const (
	NameHumanHelp             = "human_help"
	NameSearchNIT             = "search_nit"
	NameIsPersonaNatural      = "is_persona_natural"
	NameNeedsFreightForwarder = "needs_freight_forwarder"
	NameValidCity             = "es_ciudad_valida"
	NameValidMerchandise      = "es_mercancia_valida"
	NameMovingRequest         = "es_solicitud_de_mudanza"
	NameParcelRequest         = "es_solicitud_de_paqueteo"
	NameCommercialHandoff     = "remitir_a_asesor_comercial"
	NameDiscardRequest        = "descartar_solicitud"
	NameServiceType           = "obtener_tipo_de_servicio"
	NameRequestType           = "obtener_tipo_de_solicitud"
	NameNeedType              = "obtener_tipo_de_necesidad"
	NameActiveRequestClass    = "clasificar_solicitud_cliente_activo"
	NameVacancy               = "obtener_vacante"
)

// Business-data keys written by terminal and lookup tools.
const (
	DataKeyNITResult   = "search_nit_result"
	DataKeyCargoBrief  = "resumen_de_carga"
	DataKeyServiceType = "tipo_de_servicio"
	DataKeyCategory    = "categoria"
	DataKeyVacancy     = "vacante"
)

type sessionIDKey struct{}

// WithSessionID tags a context with the session the tool call belongs to.
// Handlers that record per-session artifacts read it back.
func WithSessionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, sessionIDKey{}, id)
}

func sessionIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(sessionIDKey{}).(string)
	return id
}

// Catalog builds the full tool registry wired to its external
// capabilities. Every tool name used by the category definitions is
// registered here.
func Catalog(dir contractx.NITDirectory, exporter contractx.VendorExporter) (*Registry, error) {
	return NewRegistry(
		Tool{
			Name:        NameHumanHelp,
			Description: "Escala la conversación a un asesor humano cuando el usuario lo pide, está molesto, o el flujo no puede continuar.",
			Parameters: objectSchema(map[string]any{
				"motivo": stringParam("Motivo breve de la escalación."),
			}),
			Terminal: true,
			Reply:    prompt.ReplyHumanHandoff,
			Handler: func(context.Context, map[string]any) (any, error) {
				return map[string]any{"escalado": true}, nil
			},
		},
		Tool{
			Name:        NameSearchNIT,
			Description: "Busca una empresa por su NIT en el directorio comercial y devuelve cliente, estado y responsable comercial.",
			Parameters: objectSchema(map[string]any{
				"nit": stringParam("NIT de la empresa, con o sin dígito de verificación."),
			}, "nit"),
			DataKey: DataKeyNITResult,
			Handler: func(ctx context.Context, args map[string]any) (any, error) {
				nit, err := stringArg(args, "nit")
				if err != nil {
					return nil, err
				}
				rec, found, err := dir.Lookup(ctx, nit)
				if err != nil {
					return nil, fmt.Errorf("directorio NIT: %w", err)
				}
				if !found {
					return map[string]any{"encontrado": false, "nit": NormalizeNIT(nit)}, nil
				}
				return map[string]any{
					"encontrado":            true,
					"nit":                   NormalizeNIT(nit),
					"cliente":               rec.Cliente,
					"estado":                rec.Estado,
					"responsable_comercial": rec.ResponsableComercial,
				}, nil
			},
		},
		Tool{
			Name:        NameIsPersonaNatural,
			Description: "Registra que el usuario es persona natural sin NIT de empresa.",
			Parameters:  objectSchema(map[string]any{}),
			Handler: func(context.Context, map[string]any) (any, error) {
				return map[string]any{"persona_natural": true}, nil
			},
		},
		Tool{
			Name:        NameNeedsFreightForwarder,
			Description: "Marca que la necesidad es de comercio exterior y requiere un agente de carga internacional.",
			Parameters:  objectSchema(map[string]any{}),
			Terminal:    true,
			Reply:       prompt.ReplyFreightForwarder,
			Handler: func(context.Context, map[string]any) (any, error) {
				return map[string]any{"remitido_a_agente_de_carga": true}, nil
			},
		},
		Tool{
			Name:        NameValidCity,
			Description: "Valida si la ciudad de origen o destino está dentro de la cobertura terrestre.",
			Parameters: objectSchema(map[string]any{
				"ciudad": stringParam("Nombre de la ciudad a validar."),
			}, "ciudad"),
			Handler: func(_ context.Context, args map[string]any) (any, error) {
				city, err := stringArg(args, "ciudad")
				if err != nil {
					return nil, err
				}
				if !ValidCity(city) {
					return map[string]any{
						"ciudad":  city,
						"valida":  false,
						"mensaje": fmt.Sprintf(prompt.ReplyInvalidCity, city),
					}, nil
				}
				return map[string]any{"ciudad": city, "valida": true}, nil
			},
		},
		Tool{
			Name:        NameValidMerchandise,
			Description: "Valida si la mercancía descrita puede ser transportada por la compañía.",
			Parameters: objectSchema(map[string]any{
				"mercancia": stringParam("Descripción de la mercancía."),
			}, "mercancia"),
			Handler: func(_ context.Context, args map[string]any) (any, error) {
				desc, err := stringArg(args, "mercancia")
				if err != nil {
					return nil, err
				}
				if !ValidMerchandise(desc) {
					return map[string]any{
						"mercancia": desc,
						"valida":    false,
						"mensaje":   fmt.Sprintf(prompt.ReplyForbiddenMerchandise, desc),
					}, nil
				}
				return map[string]any{"mercancia": desc, "valida": true}, nil
			},
		},
		Tool{
			Name:        NameMovingRequest,
			Description: "Determina si la solicitud corresponde a una mudanza o trasteo.",
			Parameters: objectSchema(map[string]any{
				"descripcion": stringParam("Descripción de la solicitud del usuario."),
			}, "descripcion"),
			Handler: func(_ context.Context, args map[string]any) (any, error) {
				desc, err := stringArg(args, "descripcion")
				if err != nil {
					return nil, err
				}
				return map[string]any{"es_mudanza": MovingRequest(desc)}, nil
			},
		},
		Tool{
			Name:        NameParcelRequest,
			Description: "Determina si la solicitud corresponde a paqueteo o mensajería de última milla.",
			Parameters: objectSchema(map[string]any{
				"descripcion": stringParam("Descripción de la solicitud del usuario."),
			}, "descripcion"),
			Handler: func(_ context.Context, args map[string]any) (any, error) {
				desc, err := stringArg(args, "descripcion")
				if err != nil {
					return nil, err
				}
				if ParcelRequest(desc) {
					return map[string]any{"es_paqueteo": true, "mensaje": prompt.ReplyNoLastMile}, nil
				}
				return map[string]any{"es_paqueteo": false}, nil
			},
		},
		Tool{
			Name:        NameCommercialHandoff,
			Description: "Cierra la etapa de levantamiento de información y remite el resumen de la carga a un asesor comercial para cotización.",
			Parameters: objectSchema(map[string]any{
				"resumen_de_carga": stringParam("Resumen: origen, destino, tipo de mercancía, peso y frecuencia."),
			}, "resumen_de_carga"),
			Terminal: true,
			Reply:    prompt.ReplyLeadHandoff,
			DataKey:  DataKeyCargoBrief,
			Handler: func(_ context.Context, args map[string]any) (any, error) {
				brief, err := stringArg(args, "resumen_de_carga")
				if err != nil {
					return nil, err
				}
				return map[string]any{"resumen_de_carga": brief, "remitido": true}, nil
			},
		},
		Tool{
			Name:        NameDiscardRequest,
			Description: "Descarta la solicitud de una persona natural cuya necesidad está fuera del alcance del servicio empresarial.",
			Parameters: objectSchema(map[string]any{
				"motivo": stringParam("Motivo del descarte."),
			}),
			Terminal: true,
			Reply:    prompt.ReplyDiscardNaturalPerson,
			Handler: func(context.Context, map[string]any) (any, error) {
				return map[string]any{"descartado": true}, nil
			},
		},
		Tool{
			Name:        NameServiceType,
			Description: "Registra el tipo de producto o servicio que ofrece el proveedor potencial y lo remite al área de compras.",
			Parameters: objectSchema(map[string]any{
				"tipo_de_servicio": stringParam("Tipo de producto o servicio ofrecido."),
			}, "tipo_de_servicio"),
			Terminal: true,
			Reply:    prompt.ReplyVendorContactInfo,
			DataKey:  DataKeyServiceType,
			Handler: func(ctx context.Context, args map[string]any) (any, error) {
				svc, err := stringArg(args, "tipo_de_servicio")
				if err != nil {
					return nil, err
				}
				p := contractx.VendorProspect{
					SessionID:   sessionIDFrom(ctx),
					ServiceType: svc,
					ProfiledAt:  time.Now().UTC(),
				}
				if err := exporter.AppendProspect(ctx, p); err != nil {
					return nil, fmt.Errorf("registro de proveedor: %w", err)
				}
				return map[string]any{"tipo_de_servicio": svc, "registrado": true}, nil
			},
		},
		Tool{
			Name:        NameRequestType,
			Description: "Clasifica la solicitud del transportista tercero y la enruta al área correspondiente.",
			Parameters: objectSchema(map[string]any{
				"tipo_de_solicitud": stringParam("Tipo de solicitud: vinculación, pagos, documentos u otra."),
			}, "tipo_de_solicitud"),
			Terminal: true,
			Reply:    prompt.ReplyCarrierRouted,
			DataKey:  DataKeyCategory,
			Handler: func(_ context.Context, args map[string]any) (any, error) {
				kind, err := stringArg(args, "tipo_de_solicitud")
				if err != nil {
					return nil, err
				}
				return map[string]any{"tipo_de_solicitud": kind}, nil
			},
		},
		Tool{
			Name:        NameNeedType,
			Description: "Registra la necesidad administrativa interna y la enruta al área correspondiente.",
			Parameters: objectSchema(map[string]any{
				"tipo_de_necesidad": stringParam("Necesidad administrativa reportada."),
			}, "tipo_de_necesidad"),
			Terminal: true,
			Reply:    prompt.ReplyStaffRouted,
			Handler: func(_ context.Context, args map[string]any) (any, error) {
				kind, err := stringArg(args, "tipo_de_necesidad")
				if err != nil {
					return nil, err
				}
				return map[string]any{"tipo_de_necesidad": kind}, nil
			},
		},
		Tool{
			Name:        NameActiveRequestClass,
			Description: "Clasifica la solicitud de un cliente activo (estado de carga, facturación, novedad) y la enruta a servicio al cliente.",
			Parameters: objectSchema(map[string]any{
				"tipo_de_solicitud": stringParam("Tipo de solicitud del cliente activo."),
			}, "tipo_de_solicitud"),
			Terminal: true,
			Reply:    prompt.ReplyActiveCustomerRouted,
			Handler: func(_ context.Context, args map[string]any) (any, error) {
				kind, err := stringArg(args, "tipo_de_solicitud")
				if err != nil {
					return nil, err
				}
				return map[string]any{"tipo_de_solicitud": kind}, nil
			},
		},
		Tool{
			Name:        NameVacancy,
			Description: "Registra la vacante de interés del candidato y cierra con la indicación del canal de selección.",
			Parameters: objectSchema(map[string]any{
				"vacante": stringParam("Cargo o vacante de interés."),
			}, "vacante"),
			Terminal: true,
			Reply:    prompt.ReplyCandidateClosing,
			DataKey:  DataKeyVacancy,
			Handler: func(_ context.Context, args map[string]any) (any, error) {
				role, err := stringArg(args, "vacante")
				if err != nil {
					return nil, err
				}
				return map[string]any{"vacante": role}, nil
			},
		},
	)
}
