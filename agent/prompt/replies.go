package prompt

// Canned outward replies. Terminal tools answer with these instead of
// model-generated prose.
const (
	ReplyHumanHandoff = "Un agente humano continuará esta conversación en breve. Gracias por tu paciencia."

	ReplyFreightForwarder = "Para consultas sobre agenciamiento de carga contacta a nuestro ejecutivo comercial *Luis Alberto Beltrán* al correo *labeltran@cargadirecta.co* o al teléfono *312 390 0599*."

	ReplyDiscardNaturalPerson = "Actualmente, nuestro enfoque está dirigido exclusivamente al mercado empresarial (B2B), por lo que no atendemos solicitudes de personas naturales. Te recomendamos contactar una empresa especializada en servicios para personas naturales. Quedamos atentos en caso de que surja alguna necesidad de transporte de carga pesada para empresas."

	ReplyVendorContactInfo = "Si deseas ofrecer tus servicios y/o productos a Botero Soto, envía tu brochure (portafolio) a *Juan Diego Restrepo* al correo *jdrestrepo@boterosoto.com.co* o al teléfono *322 676 4498*. También puedes contactar a *Edwin Alonso Londoño Pérez* al teléfono *320 775 9673*."

	ReplyLeadHandoff = "¡Gracias por la información! Con estos datos uno de nuestros asesores comerciales preparará tu cotización y te contactará por este medio muy pronto."

	ReplyCarrierRouted = "Gracias por la información. Hemos registrado tu solicitud y el área de operaciones te contactará por este medio con los detalles."

	ReplyActiveCustomerRouted = "Gracias por la información. Tu solicitud fue registrada y el área encargada te contactará en breve para darle trámite."

	ReplyStaffRouted = "Gracias. Tu solicitud fue registrada y el área administrativa te responderá por este medio."

	ReplyCandidateClosing = "¡Gracias por tu interés en trabajar con Botero Soto! Registramos tu postulación y el equipo de selección revisará tu perfil. Si tu hoja de vida se ajusta a la vacante, te contactaremos."

	ReplyInvalidCity = "Lo sentimos, actualmente no prestamos servicio de transporte hacia o desde %s. Nuestra cobertura es Colombia y transporte terrestre internacional a Venezuela, Ecuador y Perú."

	ReplyForbiddenMerchandise = "Lo sentimos, no transportamos %s. Botero Soto no moviliza mercancías peligrosas, seres vivos, objetos de valor excepcional, perecederos con refrigeración especial, armamento ni hidrocarburos."

	ReplyNoLastMile = "Lo sentimos, Botero Soto no presta el servicio de distribución de última milla."
)
