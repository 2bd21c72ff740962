package todokit

// ServiceName is the name the server registers under in consul.
const ServiceName = "todosvc"
